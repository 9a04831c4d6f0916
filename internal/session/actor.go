package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nadzzz/cutline/internal/clarify"
	"github.com/nadzzz/cutline/internal/history"
	"github.com/nadzzz/cutline/internal/selection"
)

// ErrStopped is returned when the actor's loop is no longer running.
var ErrStopped = errors.New("session actor stopped")

// Event is published to observers as turns progress.
type Event struct {
	Phase   Phase     `json:"phase"`
	Outcome *Outcome  `json:"outcome,omitempty"`
	At      time.Time `json:"at"`
}

// Snapshot is a read-only copy of session state for display.
type Snapshot struct {
	Mode          Mode              `json:"mode"`
	Planner       string            `json:"planner"`
	Context       selection.Context `json:"context"`
	History       []history.Entry   `json:"history"`
	Pending       *PendingView      `json:"pending,omitempty"`
	Clarification *ClarifyView      `json:"clarification,omitempty"`
}

// PendingView describes a plan awaiting confirmation.
type PendingView struct {
	Command string `json:"command"`
	Preview string `json:"preview"`
	Diff    string `json:"diff,omitempty"`
}

// ClarifyView describes the live clarification question.
type ClarifyView struct {
	Command      string `json:"command"`
	Question     string `json:"question"`
	TargetChoice bool   `json:"target_choice"`
	Attempted    bool   `json:"attempted"`
}

// Actor owns a Session on a single goroutine. Every operation is a closure
// sent over a channel, so overlapping requests queue in arrival order.
type Actor struct {
	session *Session
	inbox   chan func()
	stopped chan struct{}

	mu        sync.Mutex
	observers map[int]chan Event
	nextID    int
}

// NewActor wraps the session built by build. build receives the phase hook
// the actor needs and must pass it as Options.OnPhase.
func NewActor(build func(onPhase func(Phase)) *Session) *Actor {
	a := &Actor{
		inbox:     make(chan func()),
		stopped:   make(chan struct{}),
		observers: make(map[int]chan Event),
	}
	a.session = build(func(p Phase) { a.publish(Event{Phase: p}) })
	return a
}

// Run processes requests until ctx is cancelled.
func (a *Actor) Run(ctx context.Context) error {
	defer close(a.stopped)
	slog.Info("session actor started", "planner", a.session.PlannerName(), "mode", a.session.Mode())
	for {
		select {
		case <-ctx.Done():
			slog.Info("session actor stopped")
			return nil
		case fn := <-a.inbox:
			fn()
		}
	}
}

// do runs fn on the actor goroutine and waits for it.
func (a *Actor) do(ctx context.Context, fn func(*Session)) error {
	done := make(chan struct{})
	job := func() {
		defer close(done)
		fn(a.session)
	}
	select {
	case a.inbox <- job:
	case <-a.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// turn runs one outcome-producing operation and publishes its result.
func (a *Actor) turn(ctx context.Context, fn func(*Session) Outcome) (Outcome, error) {
	var out Outcome
	err := a.do(ctx, func(s *Session) { out = fn(s) })
	if err != nil {
		return Outcome{}, err
	}
	a.publish(Event{Phase: PhaseIdle, Outcome: &out})
	return out, nil
}

// Submit forwards a command.
func (a *Actor) Submit(ctx context.Context, text string, role history.Role) (Outcome, error) {
	return a.turn(ctx, func(s *Session) Outcome { return s.Submit(ctx, text, role) })
}

// Choose answers a target-choice question.
func (a *Actor) Choose(ctx context.Context, target selection.Target) (Outcome, error) {
	return a.turn(ctx, func(s *Session) Outcome { return s.Choose(ctx, target) })
}

// Apply runs the pending plan.
func (a *Actor) Apply(ctx context.Context) (Outcome, error) {
	var applyErr error
	out, err := a.turn(ctx, func(s *Session) Outcome {
		o, err := s.Apply(ctx)
		applyErr = err
		return o
	})
	if err != nil {
		return out, err
	}
	return out, applyErr
}

// Discard drops the pending plan.
func (a *Actor) Discard(ctx context.Context) (Outcome, error) {
	var discardErr error
	out, err := a.turn(ctx, func(s *Session) Outcome {
		o, err := s.Discard()
		discardErr = err
		return o
	})
	if err != nil {
		return out, err
	}
	return out, discardErr
}

// Undo reverts the last undo step.
func (a *Actor) Undo(ctx context.Context) (Outcome, error) {
	return a.turn(ctx, func(s *Session) Outcome { return s.Undo() })
}

// Reset clears the session.
func (a *Actor) Reset(ctx context.Context) error {
	return a.do(ctx, func(s *Session) { s.Reset() })
}

// SetMode switches between immediate and preview execution.
func (a *Actor) SetMode(ctx context.Context, m Mode) error {
	return a.do(ctx, func(s *Session) { s.SetMode(m) })
}

// Exec runs fn on the actor goroutine, between turns. Work that touches the
// session's host from outside a turn (file reloads, saves) goes through here.
func (a *Actor) Exec(ctx context.Context, fn func(*Session)) error {
	return a.do(ctx, fn)
}

// Snapshot copies the session's visible state.
func (a *Actor) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := a.do(ctx, func(s *Session) {
		snap = Snapshot{
			Mode:    s.Mode(),
			Planner: s.PlannerName(),
			Context: s.Context(),
			History: s.History(),
		}
		if p, ok := s.Pending(); ok {
			snap.Pending = &PendingView{Command: p.Command, Preview: p.Preview, Diff: p.Diff}
		}
		if t, ok := s.Clarification(); ok {
			snap.Clarification = &ClarifyView{
				Command:      t.OriginalCommand,
				Question:     t.Question,
				TargetChoice: clarify.IsTargetChoice(t.Question),
				Attempted:    t.Attempted,
			}
		}
	})
	return snap, err
}

// Subscribe registers an observer. Slow observers miss events rather than
// stall the session. cancel must be called to release the channel.
func (a *Actor) Subscribe() (events <-chan Event, cancel func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	ch := make(chan Event, 16)
	a.observers[id] = ch
	return ch, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if c, ok := a.observers[id]; ok {
			delete(a.observers, id)
			close(c)
		}
	}
}

func (a *Actor) publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, ch := range a.observers {
		select {
		case ch <- ev:
		default:
			slog.Debug("observer too slow, event dropped", "observer", id, "phase", ev.Phase)
		}
	}
}
