// Package dispatch executes validated tool calls against a DAW host.
//
// Every batch runs inside exactly one named undo transaction, in planner
// order, synchronously. Each call is broadcast to the whole current
// selection. Arguments that leave nothing to do (non-positive durations,
// crossfade without exactly two clips) are silent no-ops: they are logged
// and show up only as a lower mutation count.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/nadzzz/cutline/internal/daw"
	"github.com/nadzzz/cutline/internal/tool"
)

// ErrReentrant is returned when Execute is called while another batch is
// still open on the same executor.
var ErrReentrant = errors.New("dispatch: a transaction is already open")

// minRemainder is what cut_middle always leaves of a clip.
const minRemainder = 0.001

// Executor is the tool dispatcher for one host.
type Executor struct {
	host    daw.Host
	running atomic.Bool
}

// New creates an Executor over host.
func New(host daw.Host) *Executor {
	return &Executor{host: host}
}

// Execute applies calls as one undo step named name and returns the number
// of clips and tracks that were mutated.
func (e *Executor) Execute(name string, calls []tool.Call) (int, error) {
	if !e.running.CompareAndSwap(false, true) {
		return 0, ErrReentrant
	}
	defer e.running.Store(false)

	start := time.Now()
	logger := slog.With("transaction", name, "calls", len(calls))
	logger.Debug("execution started")

	e.host.BeginUndo()
	defer e.host.EndUndo(name)

	total := 0
	for i, c := range calls {
		n, err := e.apply(c)
		if err != nil {
			// Only host-level failures land here; the batch still closes
			// its transaction so one undo reverts everything applied.
			return total, fmt.Errorf("executing %s (call %d): %w", c.Name(), i, err)
		}
		if n == 0 {
			logger.Warn("tool call changed nothing", "tool", c.Name(), "index", i)
		}
		total += n
	}

	logger.Info("execution complete", "mutations", total, "duration", time.Since(start))
	return total, nil
}

func (e *Executor) apply(c tool.Call) (int, error) {
	switch c := c.(type) {
	case tool.FadeIn:
		return e.fade(c.Seconds, e.host.SetFadeIn), nil
	case tool.FadeOut:
		return e.fade(c.Seconds, e.host.SetFadeOut), nil
	case tool.Crossfade:
		return e.crossfade(c.Seconds), nil
	case tool.CutMiddle:
		return e.cutMiddle(c.Seconds), nil
	case tool.SplitAtCursor:
		return e.splitAtCursor(), nil
	case tool.TrimToTimeSelection:
		return e.trim(), nil
	case tool.Duplicate:
		return e.duplicate(c.Count), nil

	case tool.SetVolumeDelta:
		factor := DBToGain(c.Amount)
		if c.Unit == tool.UnitPercent {
			factor = math.Max(0, 1+c.Amount/100)
		}
		return e.eachTrack(func(t daw.TrackState) {
			e.host.SetTrackVolume(t.ID, t.Volume*factor)
		}), nil
	case tool.SetVolumeSet:
		gain := math.Max(0, c.Percent/100)
		return e.eachTrack(func(t daw.TrackState) { e.host.SetTrackVolume(t.ID, gain) }), nil
	case tool.SetPan:
		pan := math.Max(-1, math.Min(1, float64(c.Pan)/100))
		return e.eachTrack(func(t daw.TrackState) { e.host.SetTrackPan(t.ID, pan) }), nil
	case tool.Mute:
		return e.eachTrack(func(t daw.TrackState) { e.host.SetTrackMute(t.ID, true) }), nil
	case tool.Unmute:
		return e.eachTrack(func(t daw.TrackState) { e.host.SetTrackMute(t.ID, false) }), nil
	case tool.Solo:
		return e.eachTrack(func(t daw.TrackState) { e.host.SetTrackSolo(t.ID, true) }), nil
	case tool.Unsolo:
		return e.eachTrack(func(t daw.TrackState) { e.host.SetTrackSolo(t.ID, false) }), nil
	case tool.AddFX:
		return e.addFX(c.Type)
	}
	return 0, fmt.Errorf("unhandled tool %T", c)
}

// DBToGain converts a decibel change to a linear gain factor.
func DBToGain(db float64) float64 { return math.Pow(10, db/20) }

// GainToDB converts a linear gain factor to decibels.
func GainToDB(gain float64) float64 { return 20 * math.Log10(gain) }

func (e *Executor) eachTrack(fn func(daw.TrackState)) int {
	n := 0
	for _, id := range e.host.SelectedTracks() {
		t, ok := e.host.Track(id)
		if !ok {
			continue
		}
		fn(t)
		n++
	}
	return n
}

func (e *Executor) addFX(kind tool.FXType) (int, error) {
	name, ok := daw.StockFX(string(kind))
	if !ok {
		return 0, fmt.Errorf("no stock effect for %q", kind)
	}
	n := 0
	for _, id := range e.host.SelectedTracks() {
		if err := e.host.InsertFX(id, name); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// itemTargets returns the selected clips, or, when none are selected, the
// clips intersecting the time selection.
func (e *Executor) itemTargets() []daw.ClipState {
	var out []daw.ClipState
	for _, id := range e.host.SelectedClips() {
		if c, ok := e.host.Clip(id); ok {
			out = append(out, c)
		}
	}
	if len(out) > 0 {
		return out
	}
	start, end := e.host.TimeSelection()
	if end <= start {
		return nil
	}
	for _, id := range e.host.ClipsIn(start, end) {
		if c, ok := e.host.Clip(id); ok {
			out = append(out, c)
		}
	}
	return out
}

func (e *Executor) fade(seconds float64, set func(daw.ClipID, float64)) int {
	if seconds <= 0 {
		return 0
	}
	targets := e.itemTargets()
	for _, c := range targets {
		set(c.ID, math.Min(seconds, c.Length))
	}
	return len(targets)
}

func (e *Executor) crossfade(seconds float64) int {
	sel := e.host.SelectedClips()
	if seconds <= 0 || len(sel) != 2 {
		slog.Warn("crossfade skipped", "selected_clips", len(sel), "seconds", seconds)
		return 0
	}
	first, ok1 := e.host.Clip(sel[0])
	second, ok2 := e.host.Clip(sel[1])
	if !ok1 || !ok2 {
		return 0
	}
	if second.Position < first.Position {
		first, second = second, first
	}
	overlap := math.Min(seconds, math.Min(first.Length, second.Length))
	e.host.SetClipPosition(second.ID, first.End()-overlap)
	e.host.SetFadeOut(first.ID, overlap)
	e.host.SetFadeIn(second.ID, overlap)
	return 2
}

func (e *Executor) cutMiddle(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	n := 0
	for _, c := range e.itemTargets() {
		cut := math.Min(seconds, c.Length-minRemainder)
		if cut <= 0 {
			continue
		}
		mid := c.Position + c.Length/2
		a, b := mid-cut/2, mid+cut/2
		middle, ok := e.host.SplitClip(c.ID, a)
		if !ok {
			continue
		}
		tail, ok := e.host.SplitClip(middle, b)
		e.host.DeleteClip(middle)
		if ok {
			e.host.SetClipPosition(tail, a)
		}
		n++
	}
	return n
}

func (e *Executor) splitAtCursor() int {
	cursor := e.host.Cursor()
	var targets []daw.ClipID
	if sel := e.host.SelectedClips(); len(sel) > 0 {
		targets = sel
	} else if start, end := e.host.TimeSelection(); end > start && cursor >= start && cursor <= end {
		targets = e.host.ClipsAt(cursor)
	}
	n := 0
	for _, id := range targets {
		if _, ok := e.host.SplitClip(id, cursor); ok {
			n++
		}
	}
	return n
}

func (e *Executor) trim() int {
	start, end := e.host.TimeSelection()
	if end <= start {
		return 0
	}
	n := 0
	for _, id := range e.host.SelectedClips() {
		c, ok := e.host.Clip(id)
		if !ok {
			continue
		}
		if c.End() <= start || c.Position >= end {
			e.host.DeleteClip(c.ID)
			n++
			continue
		}
		newStart := math.Max(c.Position, start)
		newEnd := math.Min(c.End(), end)
		if newStart == c.Position && newEnd == c.End() {
			continue
		}
		if newStart > c.Position {
			e.host.SetTakeOffset(c.ID, c.TakeOffset+(newStart-c.Position))
			e.host.SetClipPosition(c.ID, newStart)
		}
		e.host.SetClipLength(c.ID, newEnd-newStart)
		n++
	}
	return n
}

func (e *Executor) duplicate(count int) int {
	if count <= 0 {
		return 0
	}
	per := len(e.host.SelectedClips())
	if per == 0 {
		per = len(e.host.SelectedTracks())
	}
	if per == 0 {
		return 0
	}
	for range count {
		e.host.DuplicateSelection()
	}
	return per * count
}
