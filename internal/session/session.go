// Package session runs one editing conversation against a DAW host: it
// captures the selection, asks the planner, drives the one-follow-up
// clarification dialog, validates the plan and executes it as a single undo
// step, either immediately or after an explicit Apply.
//
// A Session is not safe for concurrent use. Concurrent front-ends go through
// an Actor.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nadzzz/cutline/internal/clarify"
	"github.com/nadzzz/cutline/internal/daw"
	"github.com/nadzzz/cutline/internal/dispatch"
	"github.com/nadzzz/cutline/internal/history"
	"github.com/nadzzz/cutline/internal/intent"
	"github.com/nadzzz/cutline/internal/planner"
	"github.com/nadzzz/cutline/internal/selection"
	"github.com/nadzzz/cutline/internal/tool"
)

// ErrNothingPending is returned by Apply and Discard when no plan awaits
// confirmation.
var ErrNothingPending = errors.New("no pending plan")

// Mode selects when validated plans run.
type Mode string

const (
	ModeImmediate Mode = "immediate"
	ModePreview   Mode = "preview"
)

// ParseMode maps a config value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeImmediate, "":
		return ModeImmediate, nil
	case ModePreview:
		return ModePreview, nil
	}
	return "", fmt.Errorf("unknown session mode %q", s)
}

// Status is the result class of one turn.
type Status string

const (
	StatusApplied       Status = "applied"
	StatusPending       Status = "pending"
	StatusClarification Status = "clarification"
	StatusDiscarded     Status = "discarded"
	StatusUndone        Status = "undone"
	StatusError         Status = "error"
)

// ErrorKind classifies a failed turn.
type ErrorKind string

const (
	ErrorNone                   ErrorKind = ""
	ErrorInput                  ErrorKind = "input"
	ErrorTransport              ErrorKind = "transport"
	ErrorPlanner                ErrorKind = "planner"
	ErrorClarificationExhausted ErrorKind = "clarification_exhausted"
	ErrorValidation             ErrorKind = "validation"
	ErrorExecution              ErrorKind = "execution"
)

// Outcome is what a front-end shows after a turn.
type Outcome struct {
	Status       Status          `json:"status"`
	Message      string          `json:"message"`
	ErrorKind    ErrorKind       `json:"error_kind,omitempty"`
	Question     string          `json:"question,omitempty"`
	TargetChoice bool            `json:"target_choice,omitempty"`
	Preview      string          `json:"preview,omitempty"`
	Diff         string          `json:"diff,omitempty"`
	ToolCalls    []tool.ToolCall `json:"tool_calls,omitempty"`
	Mutations    int             `json:"mutations"`
}

// Plan is a validated plan held for confirmation in preview mode.
type Plan struct {
	Command string
	Calls   []tool.Call
	Preview string
	Diff    string
}

// Recorder receives turn and execution telemetry.
type Recorder interface {
	StartTurn(ctx context.Context, source string) (context.Context, func(status string))
	RecordExecution(ctx context.Context, name string, calls, mutations int, d time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) StartTurn(ctx context.Context, _ string) (context.Context, func(string)) {
	return ctx, func(string) {}
}
func (nopRecorder) RecordExecution(context.Context, string, int, int, time.Duration, error) {}

// Phase is the pipeline stage a turn is in.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePlanning  Phase = "planning"
	PhaseExecuting Phase = "executing"
)

// Options configures a Session.
type Options struct {
	Mode         Mode
	HistoryLimit int
	Classifier   intent.Classifier
	Recorder     Recorder
	// OnPhase is told when a turn starts planning or executing.
	OnPhase func(Phase)
}

// Session owns every piece of per-conversation state.
type Session struct {
	host       daw.Host
	planner    planner.Planner
	classifier intent.Classifier
	machine    *clarify.Machine
	executor   *dispatch.Executor
	history    *history.Log
	recorder   Recorder
	onPhase    func(Phase)
	mode       Mode

	pending    *Plan
	lastIntent *intent.Intent
}

// New creates a Session editing host through p.
func New(host daw.Host, p planner.Planner, opts Options) *Session {
	if opts.Mode == "" {
		opts.Mode = ModeImmediate
	}
	if opts.Classifier == nil {
		opts.Classifier = intent.DefaultRules
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.OnPhase == nil {
		opts.OnPhase = func(Phase) {}
	}
	return &Session{
		host:       host,
		planner:    p,
		classifier: opts.Classifier,
		machine:    clarify.New(),
		executor:   dispatch.New(host),
		history:    history.New(opts.HistoryLimit),
		recorder:   opts.Recorder,
		onPhase:    opts.OnPhase,
		mode:       opts.Mode,
	}
}

// Mode returns the execution mode.
func (s *Session) Mode() Mode { return s.mode }

// SetMode switches the execution mode. Leaving preview mode drops any
// pending plan.
func (s *Session) SetMode(m Mode) {
	if m == ModeImmediate {
		s.pending = nil
	}
	s.mode = m
}

// Submit handles one command typed or spoken by the user.
func (s *Session) Submit(ctx context.Context, text string, role history.Role) Outcome {
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{Status: StatusError, ErrorKind: ErrorInput, Message: "Enter a command."}
	}
	s.history.Append(role, text)

	ctx, done := s.recorder.StartTurn(ctx, string(role))
	out := s.submit(ctx, text)
	done(string(out.Status))
	return out
}

func (s *Session) submit(ctx context.Context, text string) Outcome {
	if s.machine.State() == clarify.Awaiting {
		if target := selection.ParseTarget(text); target != selection.TargetNone {
			return s.resume(ctx, func() (clarify.Resubmission, error) { return s.machine.Resume(target) })
		}
		if intent.IsParameterOnly(text, true) {
			return s.resume(ctx, func() (clarify.Resubmission, error) { return s.machine.ResumeWithReply(text) })
		}
		if s.machine.Discard() {
			slog.Debug("unrelated command dropped pending clarification", "command", text)
		}
	}

	if s.pending != nil {
		slog.Debug("new command replaced pending plan", "pending", s.pending.Command)
		s.pending = nil
	}

	command := text
	if s.lastIntent != nil && s.lastIntent.ExpectsNumber && intent.IsParameterOnly(text, false) {
		command = intent.BuildFollowupCommand(*s.lastIntent, text)
		slog.Debug("expanded parameter-only command", "reply", text, "command", command)
	}
	return s.plan(ctx, command, selection.TargetNone, false)
}

// Choose answers a pending target-choice question.
func (s *Session) Choose(ctx context.Context, target selection.Target) Outcome {
	if _, ok := s.machine.Pending(); !ok {
		return Outcome{Status: StatusError, ErrorKind: ErrorInput, Message: "Nothing to clarify."}
	}
	s.history.Append(history.RoleUser, string(target))

	ctx, done := s.recorder.StartTurn(ctx, "choice")
	out := s.resume(ctx, func() (clarify.Resubmission, error) { return s.machine.Resume(target) })
	done(string(out.Status))
	return out
}

func (s *Session) resume(ctx context.Context, next func() (clarify.Resubmission, error)) Outcome {
	resub, err := next()
	switch {
	case errors.Is(err, clarify.ErrExhausted):
		return s.fail(ErrorClarificationExhausted, exhaustedMessage)
	case err != nil:
		return Outcome{Status: StatusError, ErrorKind: ErrorInput, Message: err.Error()}
	}
	return s.plan(ctx, resub.Command, resub.ForcedTarget, resub.FromFollowup)
}

const exhaustedMessage = "Could not resolve the command after one follow-up. Try a more specific command."

func (s *Session) plan(ctx context.Context, command string, forced selection.Target, followup bool) Outcome {
	snapshot := selection.Capture(s.host)
	planCtx := snapshot
	if forced != selection.TargetNone {
		planCtx = snapshot.Narrow(forced)
	}

	logger := slog.With("command", command, "forced_target", forced, "followup", followup)
	logger.Debug("planning", "context", planCtx.Summary())
	s.onPhase(PhasePlanning)

	resp, err := s.planner.Plan(ctx, planner.Request{
		Command:      command,
		Context:      planCtx,
		ForcedTarget: forced,
		Hint:         s.hint(),
	})
	if err != nil {
		return s.fail(ErrorTransport, "Planning failed: "+err.Error())
	}

	switch resp.Kind {
	case planner.KindError:
		return s.fail(ErrorPlanner, resp.Error)
	case planner.KindClarification:
		if followup || forced != selection.TargetNone {
			return s.clarifiedAgain(resp.Question, forced)
		}
		return s.ask(command, resp.Question)
	}

	calls, err := tool.Validate(resp.ToolCalls)
	if err != nil {
		return s.fail(ErrorValidation, "Validation error: "+err.Error())
	}
	if err := tool.CheckSelection(calls, planCtx); err != nil {
		return s.selectionFailed(command, err, planCtx, forced, followup)
	}

	s.machine.Resolve()
	seed := s.classifier.FromToolCall(resp.ToolCalls[0])
	s.lastIntent = &seed

	preview := tool.Preview(calls, planCtx)
	if s.mode == ModePreview {
		return s.hold(command, calls, preview)
	}
	return s.execute(ctx, command, calls, preview)
}

// clarifiedAgain handles a second ambiguity for a command that already used
// its follow-up.
func (s *Session) clarifiedAgain(question string, forced selection.Target) Outcome {
	if forced != selection.TargetNone && clarify.IsTargetChoice(question) {
		return s.fail(ErrorValidation, targetError(forced))
	}
	err := s.machine.Exhaust()
	slog.Info("clarification exhausted", "error", err, "question", question)
	return s.fail(ErrorClarificationExhausted, exhaustedMessage)
}

func (s *Session) selectionFailed(command string, err error, ctx selection.Context, forced selection.Target, followup bool) Outcome {
	var se *tool.SelectionError
	if !errors.As(err, &se) {
		return s.fail(ErrorValidation, "Validation error: "+err.Error())
	}
	if forced != selection.TargetNone {
		if se.Involves(forced) {
			return s.fail(ErrorValidation, targetError(forced))
		}
		return s.fail(ErrorValidation, "Validation error: "+err.Error())
	}
	if !followup {
		if q := tool.SuggestClarification(se, ctx); q != "" {
			return s.ask(command, q)
		}
	}
	return s.fail(ErrorValidation, "Validation error: "+err.Error())
}

func (s *Session) ask(command, question string) Outcome {
	prompt, err := s.machine.Begin(command, s.classifier.FromText(command), question)
	if err != nil {
		return s.fail(ErrorClarificationExhausted, exhaustedMessage)
	}
	s.history.Append(history.RoleSystem, prompt.Question)
	return Outcome{
		Status:       StatusClarification,
		Message:      prompt.Question,
		Question:     prompt.Question,
		TargetChoice: prompt.TargetChoice,
	}
}

func (s *Session) hold(command string, calls []tool.Call, preview string) Outcome {
	p := &Plan{Command: command, Calls: calls, Preview: preview, Diff: s.dryRun(command, calls)}
	s.pending = p
	s.history.Append(history.RoleSystem, preview)
	return Outcome{
		Status:    StatusPending,
		Message:   "Review the plan, then apply or discard.",
		Preview:   preview,
		Diff:      p.Diff,
		ToolCalls: tool.WireAll(calls),
	}
}

func (s *Session) execute(ctx context.Context, command string, calls []tool.Call, preview string) Outcome {
	name := undoName(command)
	s.onPhase(PhaseExecuting)
	start := time.Now()
	n, err := s.executor.Execute(name, calls)
	s.recorder.RecordExecution(ctx, name, len(calls), n, time.Since(start), err)
	if err != nil {
		return s.fail(ErrorExecution, "Execution error: "+err.Error())
	}

	msg := fmt.Sprintf("Applied %d change(s).", n)
	if n == 0 {
		msg = "No changes were made."
	}
	s.history.Append(history.RoleSystem, msg)
	return Outcome{
		Status:    StatusApplied,
		Message:   msg,
		Preview:   preview,
		ToolCalls: tool.WireAll(calls),
		Mutations: n,
	}
}

// Apply executes the pending plan after re-checking it against the current
// selection.
func (s *Session) Apply(ctx context.Context) (Outcome, error) {
	p := s.pending
	if p == nil {
		return Outcome{}, ErrNothingPending
	}
	s.pending = nil
	if err := tool.CheckSelection(p.Calls, selection.Capture(s.host)); err != nil {
		return s.fail(ErrorValidation, "Selection changed: "+err.Error()), nil
	}
	return s.execute(ctx, p.Command, p.Calls, p.Preview), nil
}

// Discard drops the pending plan.
func (s *Session) Discard() (Outcome, error) {
	if s.pending == nil {
		return Outcome{}, ErrNothingPending
	}
	s.pending = nil
	s.history.Append(history.RoleSystem, "Canceled.")
	return Outcome{Status: StatusDiscarded, Message: "Canceled."}, nil
}

// Undo reverts the most recent undo step on hosts that support it.
func (s *Session) Undo() Outcome {
	u, ok := s.host.(daw.Undoer)
	if !ok {
		return Outcome{Status: StatusError, ErrorKind: ErrorInput, Message: "This host does not support undo."}
	}
	name, ok := u.Undo()
	if !ok {
		return Outcome{Status: StatusError, ErrorKind: ErrorInput, Message: "Nothing to undo."}
	}
	msg := "Undid " + name + "."
	s.history.Append(history.RoleSystem, msg)
	return Outcome{Status: StatusUndone, Message: msg}
}

// Reset clears history, any pending clarification or plan, and intent
// memory.
func (s *Session) Reset() {
	s.history.Clear()
	s.machine.Reset()
	s.pending = nil
	s.lastIntent = nil
}

// History returns the log, oldest first.
func (s *Session) History() []history.Entry { return s.history.Entries() }

// RecentHistory returns up to n entries, newest first.
func (s *Session) RecentHistory(n int) []history.Entry { return s.history.Recent(n) }

// Pending returns the plan awaiting confirmation.
func (s *Session) Pending() (Plan, bool) {
	if s.pending == nil {
		return Plan{}, false
	}
	return *s.pending, true
}

// Clarification returns the live clarification turn.
func (s *Session) Clarification() (clarify.Turn, bool) { return s.machine.Pending() }

// Context captures the host's current selection.
func (s *Session) Context() selection.Context { return selection.Capture(s.host) }

// PlannerName identifies the backend in use.
func (s *Session) PlannerName() string { return s.planner.Name() }

func (s *Session) hint() *planner.Hint {
	h := &planner.Hint{}
	if s.lastIntent != nil {
		h.LastIntent = s.lastIntent.Phrase
	}
	if t, ok := s.machine.Pending(); ok {
		h.PendingIntent = t.SeedIntent.Phrase
	}
	if h.Empty() {
		return nil
	}
	return h
}

// fail ends the turn with an error and clears clarification state.
func (s *Session) fail(kind ErrorKind, msg string) Outcome {
	s.machine.Reset()
	s.history.Append(history.RoleSystem, msg)
	slog.Info("turn failed", "kind", kind, "message", msg)
	return Outcome{Status: StatusError, ErrorKind: kind, Message: msg}
}

func targetError(t selection.Target) string {
	if t == selection.TargetTracks {
		return "No selected tracks. Select a track in the DAW."
	}
	return "No selected clips. Select a clip in the DAW."
}

func undoName(command string) string {
	const limit = 48
	command = strings.Join(strings.Fields(command), " ")
	if r := []rune(command); len(r) > limit {
		command = string(r[:limit-3]) + "..."
	}
	return "Cutline: " + command
}
