package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// DisplayAdapter is the capability boundary to the display server. One
// production implementation (internal/x11) and one test double exist.
type DisplayAdapter interface {
	// Events returns the lazy, infinite event stream. The channel closes
	// only when the connection is lost.
	Events() <-chan DisplayEvent
	// Dispatch executes an action batch against the server. A failed
	// dispatch is fatal to the current process incarnation.
	Dispatch(actions []DisplayAction) error
	// QueryScreens reports the current physical outputs.
	QueryScreens() ([]Screen, error)
	// QueryPointer reports the pointer position in root coordinates.
	QueryPointer() (x, y int, err error)
	// ExistingWindows lists the windows already present on the server, for
	// the adoption pass at startup.
	ExistingWindows() ([]WindowCreated, error)
	Close() error
}

// ErrRestart is returned by Loop.Run when a soft reload was requested: the
// caller should rebuild everything and run a fresh adoption pass.
var ErrRestart = errors.New("soft reload requested")

// Binding maps a grabbed key combo to a command.
type Binding struct {
	Combo   string
	Command Command
}

// Status is the read-only snapshot the loop publishes after every turn, for
// IPC queries. It is never written to by readers.
type Status struct {
	ActiveWorkspace int            `json:"active_workspace"`
	Windows         []WindowStatus `json:"windows"`
	Tags            []TagStatus    `json:"tags"`
	Screens         []ScreenStatus `json:"screens"`
}

type WindowStatus struct {
	ID       uint32   `json:"id"`
	Name     string   `json:"name"`
	Class    string   `json:"class"`
	Tags     []string `json:"tags"`
	Floating bool     `json:"floating"`
	Urgent   bool     `json:"urgent"`
	Visible  bool     `json:"visible"`
	Focused  bool     `json:"focused"`
	Geometry string   `json:"geometry"`
}

type TagStatus struct {
	Name      string `json:"name"`
	Label     string `json:"label,omitempty"`
	Layout    string `json:"layout"`
	Windows   int    `json:"windows"`
	Displayed bool   `json:"displayed"`
}

type ScreenStatus struct {
	Name     string `json:"name"`
	Geometry string `json:"geometry"`
	Parked   bool   `json:"parked"`
}

// loopState names the phase of the current turn, for diagnostics only.
type loopState int

const (
	stateIdle loopState = iota
	stateProcessing
	stateFocusing
	stateEmitting
)

func (s loopState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateProcessing:
		return "processing"
	case stateFocusing:
		return "focusing"
	case stateEmitting:
		return "emitting"
	}
	return "unknown"
}

// Loop is the single driver of the model: it merges display events and
// commands into one serialized stream and runs each input through the
// processor or reconciler, the focus manager and the emitter, atomically per
// turn.
type Loop struct {
	model    *Model
	proc     *Processor
	rec      *Reconciler
	emitter  *Emitter
	adapter  DisplayAdapter
	commands <-chan Command
	bindings map[string]Command
	logger   *slog.Logger

	// Publish, when set, receives the status snapshot after every turn.
	Publish func(Status)

	state loopState
}

// LoopConfig wires a Loop.
type LoopConfig struct {
	Model    *Model
	Proc     *Processor
	Rec      *Reconciler
	Emitter  *Emitter
	Adapter  DisplayAdapter
	Commands <-chan Command
	Bindings []Binding
	Logger   *slog.Logger
}

// NewLoop builds the event loop. The command channel is owned by the caller
// (typically the IPC server) and must preserve per-sender order.
func NewLoop(cfg LoopConfig) *Loop {
	bindings := make(map[string]Command, len(cfg.Bindings))
	for _, b := range cfg.Bindings {
		bindings[b.Combo] = b.Command
	}
	return &Loop{
		model:    cfg.Model,
		proc:     cfg.Proc,
		rec:      cfg.Rec,
		emitter:  cfg.Emitter,
		adapter:  cfg.Adapter,
		commands: cfg.Commands,
		bindings: bindings,
		logger:   cfg.Logger,
	}
}

// Run drives the loop until Exit, SoftReload (ErrRestart), context
// cancellation, or an adapter failure. It starts with an adoption pass:
// current screens and existing windows are reconciled before the first input
// is consumed.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.adoptionPass(); err != nil {
		return fmt.Errorf("adoption pass: %w", err)
	}

	events := l.adapter.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return errors.New("display event stream closed")
			}
			if err := l.eventTurn(ev); err != nil {
				return err
			}
		case cmd := <-l.commands:
			done, err := l.commandTurn(cmd)
			if err != nil || done != nil {
				if done != nil {
					return done
				}
				return err
			}
		}
	}
}

// adoptionPass reconciles the server's current screens and windows into a
// fresh model and emits the converging batch. Used at startup and after a
// soft reload.
func (l *Loop) adoptionPass() error {
	screens, err := l.adapter.QueryScreens()
	if err != nil {
		return fmt.Errorf("query screens: %w", err)
	}
	l.rec.Reconcile(l.model, ScreensChanged{Screens: screens})

	existing, err := l.adapter.ExistingWindows()
	if err != nil {
		return fmt.Errorf("scan existing windows: %w", err)
	}
	for _, ev := range existing {
		l.rec.Reconcile(l.model, ev)
	}
	return l.finishTurn(true)
}

// eventTurn runs one display event through reconcile → focus → emit.
func (l *Loop) eventTurn(ev DisplayEvent) error {
	if combo, ok := ev.(KeyComboPressed); ok {
		cmd, bound := l.bindings[combo.Combo]
		if !bound {
			l.logger.Debug("keybinding.unbound", "combo", combo.Combo)
			return nil
		}
		done, err := l.commandTurn(cmd)
		if done != nil {
			return done
		}
		return err
	}

	l.state = stateProcessing
	mutated := l.rec.Reconcile(l.model, ev)
	return l.finishTurn(mutated)
}

// commandTurn runs one command. The first return value is non-nil for
// loop-terminal commands: ErrRestart for a soft reload, errExit for exit.
func (l *Loop) commandTurn(cmd Command) (terminal error, err error) {
	switch cmd.Kind {
	case CmdExit:
		l.logger.Info("loop.exit")
		return errExit, nil
	case CmdSoftReload:
		l.logger.Info("loop.softreload")
		return ErrRestart, nil
	}

	l.state = stateProcessing
	mutated, err := l.proc.Apply(l.model, cmd)
	if err != nil {
		// Rejected command: diagnostic already emitted, model untouched.
		return nil, nil
	}
	return nil, l.finishTurn(mutated)
}

// finishTurn runs the focus and emit phases and returns to idle. Adapter
// dispatch failures propagate and end the incarnation.
func (l *Loop) finishTurn(mutated bool) error {
	if !mutated {
		l.state = stateIdle
		return nil
	}

	l.state = stateFocusing
	for _, ws := range l.model.Workspaces {
		ApplyFocus(ws, l.model)
	}
	if n := l.model.SelfHeal(l.logger); n > 0 {
		l.logger.Warn("model.selfheal", "pruned", n)
	}

	l.state = stateEmitting
	batch := l.emitter.Emit(l.model)
	if len(batch) > 0 {
		if err := l.adapter.Dispatch(batch); err != nil {
			return fmt.Errorf("dispatch %d actions: %w", len(batch), err)
		}
	}
	// The snapshot advances only once the batch is accepted for dispatch.
	l.emitter.Commit()

	l.state = stateIdle
	if l.Publish != nil {
		l.Publish(l.snapshot())
	}
	return nil
}

// errExit is the internal sentinel for a clean shutdown; Run translates it to
// a nil error.
var errExit = errors.New("exit requested")

// RunUntilExit wraps Run, converting the exit sentinel to nil.
func (l *Loop) RunUntilExit(ctx context.Context) error {
	err := l.Run(ctx)
	if errors.Is(err, errExit) {
		return nil
	}
	return err
}

func (l *Loop) snapshot() Status {
	m := l.model
	st := Status{ActiveWorkspace: m.Active}

	visible := make(map[WindowID]bool)
	var focused WindowID
	for i, ws := range m.Workspaces {
		for _, w := range m.VisibleWindows(ws) {
			visible[w.ID] = true
		}
		if i == m.Active {
			focused = ws.Focused
		}
		parked := ws.Parked
		st.Screens = append(st.Screens, ScreenStatus{
			Name:     ws.Screen,
			Geometry: ws.Region.String(),
			Parked:   parked,
		})
	}

	for _, w := range m.Windows() {
		st.Windows = append(st.Windows, WindowStatus{
			ID:       uint32(w.ID),
			Name:     w.Name,
			Class:    w.Class,
			Tags:     append([]string(nil), w.Tags...),
			Floating: w.Floating,
			Urgent:   w.Urgent,
			Visible:  visible[w.ID],
			Focused:  w.ID == focused,
			Geometry: w.Geom.String(),
		})
	}
	sortWindowStatus(st.Windows)

	for _, t := range m.Tags() {
		st.Tags = append(st.Tags, TagStatus{
			Name:      t.Name,
			Label:     t.Label,
			Layout:    t.Layout,
			Windows:   len(t.Windows),
			Displayed: m.WorkspaceDisplaying(t.Name) != nil,
		})
	}
	return st
}

func sortWindowStatus(ws []WindowStatus) {
	sort.Slice(ws, func(i, j int) bool { return ws[i].ID < ws[j].ID })
}
