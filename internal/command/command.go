// Package command maps the operator command surface onto controller
// operations. Commands are a closed tagged enum dispatched by a single
// function returning a structured result; translation to operator-visible
// text stays in the renderer and the console glue.
package command

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/autolight/internal/controller"
	"github.com/dokzlo13/autolight/internal/ledger"
	"github.com/dokzlo13/autolight/internal/schedule"
)

// Kind enumerates the supported commands.
type Kind string

const (
	KindCheck           Kind = "check"
	KindEnable          Kind = "enable"
	KindDisable         Kind = "disable"
	KindListSchedules   Kind = "schedules"
	KindScheduleEnable  Kind = "schedule_enable"
	KindScheduleDisable Kind = "schedule_disable"
	KindResetCache      Kind = "reset_cache"
	KindHistory         Kind = "history"
	KindHelp            Kind = "help"
)

// Command is one parsed operator command.
type Command struct {
	Kind       Kind
	ScheduleID int // schedule_enable / schedule_disable only
}

// Result is the structured outcome of a dispatch. The host glue renders
// it; exit codes and formatting are its concern, not ours.
type Result struct {
	Message string
	Err     error
}

// OK reports whether the command succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

const helpText = `commands:
  check          apply the current schedule now
  on             enable automatic control
  off            disable automatic control
  schedules      list configured schedules
  enable <id>    enable schedule 1-5
  disable <id>   disable schedule 1-5
  reset          clear the brightness cache
  history        show recent applied changes
  help           this text`

// Parse turns a console line into a Command.
func Parse(line string) (Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	verb, args := fields[0], fields[1:]
	switch verb {
	case "check":
		return Command{Kind: KindCheck}, nil
	case "on":
		return Command{Kind: KindEnable}, nil
	case "off":
		return Command{Kind: KindDisable}, nil
	case "schedules", "list":
		return Command{Kind: KindListSchedules}, nil
	case "enable":
		id, err := parseID(args)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindScheduleEnable, ScheduleID: id}, nil
	case "disable":
		id, err := parseID(args)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindScheduleDisable, ScheduleID: id}, nil
	case "reset":
		return Command{Kind: KindResetCache}, nil
	case "history":
		return Command{Kind: KindHistory}, nil
	case "help":
		return Command{Kind: KindHelp}, nil
	default:
		return Command{}, fmt.Errorf("unknown command %q (try 'help')", verb)
	}
}

func parseID(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected a schedule id 1-%d", schedule.MaxEntries)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id < 1 || id > schedule.MaxEntries {
		return 0, fmt.Errorf("invalid schedule id %q, expected 1-%d", args[0], schedule.MaxEntries)
	}
	return id, nil
}

// Dispatcher executes commands against a controller. The history ledger
// is optional.
type Dispatcher struct {
	ctrl    *controller.Controller
	history *ledger.Ledger
}

// NewDispatcher creates a dispatcher. history may be nil.
func NewDispatcher(ctrl *controller.Controller, history *ledger.Ledger) *Dispatcher {
	return &Dispatcher{ctrl: ctrl, history: history}
}

// Dispatch executes a single command at the given time of day.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command, now schedule.Minutes) Result {
	invocation := uuid.NewString()
	log.Debug().
		Str("invocation", invocation).
		Str("command", string(cmd.Kind)).
		Int("schedule", cmd.ScheduleID).
		Msg("Dispatching command")

	switch cmd.Kind {
	case KindCheck:
		entry, found, err := d.ctrl.ForceCheck(ctx, now)
		if err != nil {
			return Result{Err: err}
		}
		if !found {
			return Result{Message: fmt.Sprintf("no active schedule at %s, holding last value", now)}
		}
		return Result{Message: fmt.Sprintf("schedule %d applied, brightness %d%%", entry.ID, pct(entry.Brightness))}

	case KindEnable:
		d.ctrl.Enable(ctx, now)
		return Result{Message: "automatic control enabled"}

	case KindDisable:
		d.ctrl.Disable()
		return Result{Message: "automatic control disabled"}

	case KindListSchedules:
		return Result{Message: d.renderSchedules(now)}

	case KindScheduleEnable:
		if err := d.ctrl.SetScheduleEnabled(cmd.ScheduleID, true); err != nil {
			return Result{Err: err}
		}
		return Result{Message: fmt.Sprintf("schedule %d enabled", cmd.ScheduleID)}

	case KindScheduleDisable:
		if err := d.ctrl.SetScheduleEnabled(cmd.ScheduleID, false); err != nil {
			return Result{Err: err}
		}
		return Result{Message: fmt.Sprintf("schedule %d disabled", cmd.ScheduleID)}

	case KindResetCache:
		d.ctrl.ResetCache()
		return Result{Message: "brightness cache cleared"}

	case KindHistory:
		return d.renderHistory()

	case KindHelp:
		return Result{Message: helpText}

	default:
		return Result{Err: fmt.Errorf("unknown command kind %q", cmd.Kind)}
	}
}

func (d *Dispatcher) renderSchedules(now schedule.Minutes) string {
	statuses := d.ctrl.Describe(now)

	var sb strings.Builder
	master := "off"
	if d.ctrl.Enabled() {
		master = "on"
	}
	sb.WriteString(fmt.Sprintf("time %s, automatic control %s", now, master))
	if level, ok := d.ctrl.LastApplied(); ok {
		sb.WriteString(fmt.Sprintf(", last applied %d%%", pct(level)))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%-3s %-13s %-6s %-9s %s\n", "ID", "WINDOW", "LEVEL", "STATE", "ACTIVE"))

	for _, st := range statuses {
		state := "disabled"
		if st.Enabled {
			state = "enabled"
		}
		active := ""
		if st.Active {
			active = "*"
		}
		sb.WriteString(fmt.Sprintf("%-3d %-13s %-6s %-9s %s\n",
			st.ID, st.Window(), fmt.Sprintf("%d%%", pct(st.Brightness)), state, active))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (d *Dispatcher) renderHistory() Result {
	if d.history == nil {
		return Result{Message: "history disabled (no database configured)"}
	}
	entries, err := d.history.Recent(10)
	if err != nil {
		return Result{Err: err}
	}
	if len(entries) == 0 {
		return Result{Message: "no history yet"}
	}

	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("%s  schedule %d  %d%%  (%s)\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.ScheduleID, pct(e.Level), e.Source))
	}
	return Result{Message: strings.TrimRight(sb.String(), "\n")}
}

func pct(level float64) int {
	return int(math.Round(level * 100))
}
