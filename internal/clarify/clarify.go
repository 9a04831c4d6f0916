// Package clarify implements the one-follow-up clarification dialog.
//
// A Machine holds at most one Turn. Once the follow-up for a turn has been
// sent, a second ambiguity for the same command is terminal: the cap is a
// property of the state machine, not of its callers.
package clarify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nadzzz/cutline/internal/intent"
	"github.com/nadzzz/cutline/internal/selection"
)

// ErrExhausted is returned when a command is still ambiguous after its one
// allowed follow-up.
var ErrExhausted = errors.New("could not resolve after one follow-up")

// State is the machine's current state.
type State int

const (
	Idle State = iota
	Awaiting
	Terminal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Awaiting:
		return "awaiting_clarification"
	case Terminal:
		return "terminal"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Turn is the pending clarification.
type Turn struct {
	OriginalCommand string
	SeedIntent      intent.Intent
	ForcedTarget    selection.Target
	Question        string
	Attempted       bool
}

// Prompt is what the user is asked.
type Prompt struct {
	Question string
	// TargetChoice is set when the question asks the user to pick between
	// clips and tracks.
	TargetChoice bool
}

// Resubmission is the original command re-sent after the user's answer.
type Resubmission struct {
	Command      string
	ForcedTarget selection.Target
	FromFollowup bool
}

// Machine is not safe for concurrent use; it belongs to a single session.
type Machine struct {
	state State
	turn  *Turn
}

// New returns an idle machine.
func New() *Machine { return &Machine{} }

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Pending returns a copy of the live turn, if any.
func (m *Machine) Pending() (Turn, bool) {
	if m.turn == nil {
		return Turn{}, false
	}
	return *m.turn, true
}

// Begin opens a turn for an ambiguous fresh command.
func (m *Machine) Begin(command string, seed intent.Intent, question string) (Prompt, error) {
	if m.state != Idle {
		return Prompt{}, fmt.Errorf("begin clarification: machine is %s", m.state)
	}
	m.turn = &Turn{OriginalCommand: command, SeedIntent: seed, Question: question}
	m.state = Awaiting
	return Prompt{Question: question, TargetChoice: IsTargetChoice(question)}, nil
}

// Resume answers the pending turn with an explicit target choice.
func (m *Machine) Resume(target selection.Target) (Resubmission, error) {
	if target == selection.TargetNone {
		return Resubmission{}, fmt.Errorf("resume clarification: target must be clips or tracks")
	}
	if err := m.attempt(); err != nil {
		return Resubmission{}, err
	}
	m.turn.ForcedTarget = target
	m.turn.SeedIntent.ForcedTarget = target
	return Resubmission{Command: m.turn.OriginalCommand, ForcedTarget: target, FromFollowup: true}, nil
}

// ResumeWithReply answers the pending turn with a parameter-only reply that
// is merged into the original command.
func (m *Machine) ResumeWithReply(reply string) (Resubmission, error) {
	if err := m.attempt(); err != nil {
		return Resubmission{}, err
	}
	return Resubmission{
		Command:      intent.BuildFollowupCommand(m.turn.SeedIntent, reply),
		ForcedTarget: m.turn.ForcedTarget,
		FromFollowup: true,
	}, nil
}

// attempt marks the turn as attempted, or exhausts it if the follow-up was
// already used.
func (m *Machine) attempt() error {
	if m.state != Awaiting || m.turn == nil {
		return fmt.Errorf("resume clarification: machine is %s", m.state)
	}
	if m.turn.Attempted {
		return m.Exhaust()
	}
	m.turn.Attempted = true
	return nil
}

// Exhaust passes through Terminal back to Idle, dropping the live turn. It
// always returns ErrExhausted, which is the only trace Terminal leaves.
func (m *Machine) Exhaust() error {
	m.turn = nil
	m.state = Idle
	return ErrExhausted
}

// Resolve closes the live turn after a successful plan.
func (m *Machine) Resolve() {
	m.turn = nil
	m.state = Idle
}

// Reset discards any pending turn.
func (m *Machine) Reset() { m.Resolve() }

// Discard drops a pending turn because an unrelated command arrived. It
// reports whether a turn was dropped.
func (m *Machine) Discard() bool {
	had := m.turn != nil
	m.Reset()
	return had
}

// IsTargetChoice reports whether a question asks the user to choose between
// clips and tracks.
func IsTargetChoice(question string) bool {
	q := strings.ToLower(question)
	hasClip := strings.Contains(q, "clip") || strings.Contains(q, "item")
	return hasClip && strings.Contains(q, "track")
}
