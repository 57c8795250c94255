package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/dokzlo13/autolight/internal/output"
	"github.com/dokzlo13/autolight/internal/schedule"
)

type fakeOutput struct {
	writes []float64
	fail   bool
}

func (f *fakeOutput) Name() string { return "test_pin" }

func (f *fakeOutput) Set(_ context.Context, level float64) error {
	if f.fail {
		return output.ErrWriteFailed
	}
	f.writes = append(f.writes, level)
	return nil
}

type fakeRecorder struct {
	records []int
}

func (f *fakeRecorder) RecordApplied(scheduleID int, _ float64, _ string) error {
	f.records = append(f.records, scheduleID)
	return nil
}

func daySet(t *testing.T) *schedule.Set {
	t.Helper()
	s, err := schedule.NewSet([]schedule.Entry{
		{ID: 1, Start: 0, End: 8 * 60, Brightness: 0.1, Enabled: true},
		{ID: 2, Start: 8 * 60, End: 20 * 60, Brightness: 1.0, Enabled: true},
	})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	return s
}

func TestOnTickFirstWriteAndIdempotence(t *testing.T) {
	out := &fakeOutput{}
	c := New(daySet(t), out, true, nil)
	ctx := context.Background()

	c.OnTick(ctx, 10*60)
	c.OnTick(ctx, 11*60) // same active entry, must not write again

	if len(out.writes) != 1 {
		t.Fatalf("writes = %v, want exactly one", out.writes)
	}
	if out.writes[0] != 1.0 {
		t.Errorf("wrote %v, want 1.0", out.writes[0])
	}
}

func TestOnTickWritesOnChange(t *testing.T) {
	out := &fakeOutput{}
	c := New(daySet(t), out, true, nil)
	ctx := context.Background()

	c.OnTick(ctx, 10*60) // entry 2, 1.0
	c.OnTick(ctx, 21*60) // gap, no-op
	c.OnTick(ctx, 5*60)  // entry 1, 0.1

	want := []float64{1.0, 0.1}
	if len(out.writes) != len(want) {
		t.Fatalf("writes = %v, want %v", out.writes, want)
	}
	for i := range want {
		if out.writes[i] != want[i] {
			t.Errorf("writes[%d] = %v, want %v", i, out.writes[i], want[i])
		}
	}
}

func TestOnTickDisabledDoesNothing(t *testing.T) {
	out := &fakeOutput{}
	c := New(daySet(t), out, false, nil)

	c.OnTick(context.Background(), 10*60)
	if len(out.writes) != 0 {
		t.Errorf("disabled controller wrote %v", out.writes)
	}
}

func TestGapHoldsLastValue(t *testing.T) {
	out := &fakeOutput{}
	s, err := schedule.NewSet([]schedule.Entry{
		{ID: 1, Start: 0, End: 8 * 60, Brightness: 0.1, Enabled: true},
		{ID: 2, Start: 20 * 60, End: 0, Brightness: 0.1, Enabled: true},
	})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	c := New(s, out, true, nil)
	ctx := context.Background()

	c.OnTick(ctx, 5*60)  // 0.1 applied
	c.OnTick(ctx, 12*60) // inside the 08:00-20:00 gap

	if len(out.writes) != 1 {
		t.Fatalf("writes = %v, want one (gap must not write)", out.writes)
	}
	level, ok := c.LastApplied()
	if !ok || level != 0.1 {
		t.Errorf("LastApplied = %v,%v, want 0.1,true (hold-last-value)", level, ok)
	}
}

func TestForceCheckAlwaysWrites(t *testing.T) {
	out := &fakeOutput{}
	c := New(daySet(t), out, true, nil)
	ctx := context.Background()

	c.OnTick(ctx, 10*60)
	entry, found, err := c.ForceCheck(ctx, 10*60)
	if err != nil {
		t.Fatalf("ForceCheck: %v", err)
	}
	if !found || entry.ID != 2 {
		t.Errorf("ForceCheck matched id %d (found=%v), want 2", entry.ID, found)
	}
	if len(out.writes) != 2 {
		t.Errorf("writes = %v, want two (force bypasses unchanged-skip)", out.writes)
	}
}

func TestForceCheckWorksWhileDisabled(t *testing.T) {
	out := &fakeOutput{}
	c := New(daySet(t), out, false, nil)

	if _, found, err := c.ForceCheck(context.Background(), 10*60); err != nil || !found {
		t.Fatalf("ForceCheck while disabled: found=%v err=%v", found, err)
	}
	if len(out.writes) != 1 {
		t.Errorf("writes = %v, want one", out.writes)
	}
}

func TestResetCacheForcesNextWrite(t *testing.T) {
	out := &fakeOutput{}
	c := New(daySet(t), out, true, nil)
	ctx := context.Background()

	c.OnTick(ctx, 10*60)
	c.ResetCache()
	c.OnTick(ctx, 10*60) // same brightness, but cache is unset

	if len(out.writes) != 2 {
		t.Errorf("writes = %v, want two after ResetCache", out.writes)
	}
}

func TestEnableTriggersImmediateCheck(t *testing.T) {
	out := &fakeOutput{}
	c := New(daySet(t), out, false, nil)
	ctx := context.Background()

	c.Enable(ctx, 10*60)
	if !c.Enabled() {
		t.Error("Enabled() = false after Enable")
	}
	if len(out.writes) != 1 {
		t.Errorf("writes = %v, want one immediately after Enable", out.writes)
	}

	c.Disable()
	if c.Enabled() {
		t.Error("Enabled() = true after Disable")
	}
	c.OnTick(ctx, 5*60)
	if len(out.writes) != 1 {
		t.Errorf("tick after Disable wrote: %v", out.writes)
	}
}

func TestWriteFailureKeepsCacheAndRetries(t *testing.T) {
	out := &fakeOutput{fail: true}
	c := New(daySet(t), out, true, nil)
	ctx := context.Background()

	c.OnTick(ctx, 10*60)
	if _, ok := c.LastApplied(); ok {
		t.Error("cache was updated despite a failed write")
	}

	// Next tick retries the same write once the output recovers.
	out.fail = false
	c.OnTick(ctx, 10*60)
	if len(out.writes) != 1 || out.writes[0] != 1.0 {
		t.Errorf("writes after recovery = %v, want [1.0]", out.writes)
	}

	// ForceCheck surfaces the error to its caller.
	out.fail = true
	if _, _, err := c.ForceCheck(ctx, 10*60); !errors.Is(err, output.ErrWriteFailed) {
		t.Errorf("ForceCheck error = %v, want ErrWriteFailed", err)
	}
}

func TestRecorderNotifiedOnApply(t *testing.T) {
	out := &fakeOutput{}
	rec := &fakeRecorder{}
	c := New(daySet(t), out, true, rec)
	ctx := context.Background()

	c.OnTick(ctx, 10*60)
	c.OnTick(ctx, 11*60) // skipped, must not record

	if len(rec.records) != 1 || rec.records[0] != 2 {
		t.Errorf("records = %v, want [2]", rec.records)
	}
}

func TestDescribe(t *testing.T) {
	out := &fakeOutput{}
	s, err := schedule.NewSet([]schedule.Entry{
		{ID: 2, Start: 8 * 60, End: 12 * 60, Brightness: 0.5, Enabled: true},
		{ID: 1, Start: 9 * 60, End: 11 * 60, Brightness: 0.9, Enabled: true},
	})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	c := New(s, out, true, nil)

	statuses := c.Describe(9*60 + 30)
	if len(statuses) != 2 {
		t.Fatalf("Describe returned %d rows, want 2", len(statuses))
	}
	// Ascending id order, active marker follows the tie-break.
	if statuses[0].ID != 1 || statuses[1].ID != 2 {
		t.Errorf("Describe order = [%d %d], want [1 2]", statuses[0].ID, statuses[1].ID)
	}
	if !statuses[0].Active || statuses[1].Active {
		t.Errorf("active flags = [%v %v], want [true false]", statuses[0].Active, statuses[1].Active)
	}
}

func TestSetScheduleEnabledPassesGuard(t *testing.T) {
	out := &fakeOutput{}
	s, err := schedule.NewSet([]schedule.Entry{
		{ID: 1, Start: 0, End: 60, Brightness: 0.5, Enabled: true},
	})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	c := New(s, out, true, nil)

	if err := c.SetScheduleEnabled(1, false); !errors.Is(err, schedule.ErrLastScheduleGuard) {
		t.Errorf("error = %v, want ErrLastScheduleGuard", err)
	}
}
