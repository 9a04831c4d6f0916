package daw

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
)

// FX names inserted by add_fx, keyed by effect type.
var stockFX = map[string]string{
	"compressor": "ReaComp",
	"eq":         "ReaEQ",
	"reverb":     "ReaVerbate",
}

// StockFX returns the host effect name for an add_fx type.
func StockFX(kind string) (string, bool) {
	name, ok := stockFX[kind]
	return name, ok
}

// Project is an in-memory Host. It is safe for concurrent use; every method
// takes the project lock.
type Project struct {
	mu sync.Mutex

	tracks    []*TrackState
	clips     []*ClipState // creation order, which is also selection order
	nextTrack TrackID
	nextClip  ClipID

	cursor   float64
	tsStart  float64
	tsEnd    float64
	undo     []undoStep
	depth    int
	snapshot *projectSnapshot
	idle     *sync.Cond // signalled when depth returns to zero
	written  []byte     // last bytes written by Save
}

type undoStep struct {
	name   string
	before *projectSnapshot
}

type projectSnapshot struct {
	tracks    []TrackState
	clips     []ClipState
	nextTrack TrackID
	nextClip  ClipID
	cursor    float64
	tsStart   float64
	tsEnd     float64
}

// NewProject returns an empty project.
func NewProject() *Project {
	return &Project{nextTrack: 1, nextClip: 1}
}

// AddTrack appends a track with unity gain and returns its ID.
func (p *Project) AddTrack(name string, selected bool) TrackID {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextTrack
	p.nextTrack++
	p.tracks = append(p.tracks, &TrackState{ID: id, Name: name, Volume: 1, Selected: selected})
	return id
}

// AddClip places a clip on a track and returns its ID.
func (p *Project) AddClip(track TrackID, position, length float64, selected bool) ClipID {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextClip
	p.nextClip++
	p.clips = append(p.clips, &ClipState{ID: id, Track: track, Position: position, Length: length, Selected: selected})
	return id
}

// SetCursor moves the play cursor.
func (p *Project) SetCursor(pos float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = pos
}

// SetTimeSelection marks a time range. Pass end <= start to clear it.
func (p *Project) SetTimeSelection(start, end float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tsStart, p.tsEnd = start, end
}

// SelectClip changes a clip's selection flag.
func (p *Project) SelectClip(id ClipID, selected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c := p.clip(id); c != nil {
		c.Selected = selected
	}
}

// SelectTrack changes a track's selection flag.
func (p *Project) SelectTrack(id TrackID, selected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t := p.track(id); t != nil {
		t.Selected = selected
	}
}

// Clips returns every clip in creation order.
func (p *Project) Clips() []ClipState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ClipState, 0, len(p.clips))
	for _, c := range p.clips {
		out = append(out, *c)
	}
	return out
}

// Tracks returns every track in list order.
func (p *Project) Tracks() []TrackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TrackState, 0, len(p.tracks))
	for i, t := range p.tracks {
		cp := *t
		cp.Index = i + 1
		cp.FX = slices.Clone(t.FX)
		out = append(out, cp)
	}
	return out
}

// UndoDepth returns the number of recorded undo steps.
func (p *Project) UndoDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.undo)
}

// --- Reader ---

func (p *Project) SelectedClips() []ClipID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []ClipID
	for _, c := range p.clips {
		if c.Selected {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func (p *Project) SelectedTracks() []TrackID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []TrackID
	for _, t := range p.tracks {
		if t.Selected {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func (p *Project) Clip(id ClipID) (ClipState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.clip(id)
	if c == nil {
		return ClipState{}, false
	}
	return *c, true
}

func (p *Project) Track(id TrackID) (TrackState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, t := range p.tracks {
		if t.ID == id {
			cp := *t
			cp.Index = i + 1
			cp.FX = slices.Clone(t.FX)
			return cp, true
		}
	}
	return TrackState{}, false
}

func (p *Project) ClipsAt(pos float64) []ClipID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []ClipID
	for _, c := range p.clips {
		if c.Position <= pos && pos < c.End() {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func (p *Project) ClipsIn(start, end float64) []ClipID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []ClipID
	for _, c := range p.clips {
		if c.Position < end && start < c.End() {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func (p *Project) Cursor() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

func (p *Project) TimeSelection() (float64, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tsStart, p.tsEnd
}

// --- Editor ---

func (p *Project) SetClipPosition(id ClipID, pos float64) {
	p.editClip(id, func(c *ClipState) { c.Position = math.Max(0, pos) })
}

func (p *Project) SetClipLength(id ClipID, length float64) {
	p.editClip(id, func(c *ClipState) {
		c.Length = math.Max(0, length)
		c.FadeIn = math.Min(c.FadeIn, c.Length)
		c.FadeOut = math.Min(c.FadeOut, c.Length)
	})
}

func (p *Project) SetFadeIn(id ClipID, seconds float64) {
	p.editClip(id, func(c *ClipState) { c.FadeIn = math.Max(0, seconds) })
}

func (p *Project) SetFadeOut(id ClipID, seconds float64) {
	p.editClip(id, func(c *ClipState) { c.FadeOut = math.Max(0, seconds) })
}

func (p *Project) SetTakeOffset(id ClipID, offset float64) {
	p.editClip(id, func(c *ClipState) { c.TakeOffset = offset })
}

func (p *Project) SplitClip(id ClipID, pos float64) (ClipID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := slices.IndexFunc(p.clips, func(c *ClipState) bool { return c.ID == id })
	if idx < 0 {
		return 0, false
	}
	left := p.clips[idx]
	if pos <= left.Position || pos >= left.End() {
		return 0, false
	}
	right := &ClipState{
		ID:         p.nextClip,
		Track:      left.Track,
		Position:   pos,
		Length:     left.End() - pos,
		FadeOut:    left.FadeOut,
		TakeOffset: left.TakeOffset + (pos - left.Position),
		Selected:   left.Selected,
	}
	p.nextClip++
	left.Length = pos - left.Position
	left.FadeOut = 0
	left.FadeIn = math.Min(left.FadeIn, left.Length)
	right.FadeOut = math.Min(right.FadeOut, right.Length)
	p.clips = slices.Insert(p.clips, idx+1, right)
	return right.ID, true
}

func (p *Project) DeleteClip(id ClipID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clips = slices.DeleteFunc(p.clips, func(c *ClipState) bool { return c.ID == id })
}

func (p *Project) SetTrackVolume(id TrackID, gain float64) {
	p.editTrack(id, func(t *TrackState) { t.Volume = math.Max(0, gain) })
}

func (p *Project) SetTrackPan(id TrackID, pan float64) {
	p.editTrack(id, func(t *TrackState) { t.Pan = math.Max(-1, math.Min(1, pan)) })
}

func (p *Project) SetTrackMute(id TrackID, mute bool) {
	p.editTrack(id, func(t *TrackState) { t.Mute = mute })
}

func (p *Project) SetTrackSolo(id TrackID, solo bool) {
	p.editTrack(id, func(t *TrackState) { t.Solo = solo })
}

func (p *Project) InsertFX(id TrackID, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.track(id)
	if t == nil {
		return fmt.Errorf("track %d not found", id)
	}
	t.FX = append(t.FX, name)
	return nil
}

// DuplicateSelection copies the selected clips to just after the selection
// span and moves the selection to the copies. With no clips selected it
// duplicates the selected tracks (and their clips) instead.
func (p *Project) DuplicateSelection() {
	p.mu.Lock()
	defer p.mu.Unlock()

	var selected []*ClipState
	for _, c := range p.clips {
		if c.Selected {
			selected = append(selected, c)
		}
	}
	if len(selected) > 0 {
		start, end := math.Inf(1), math.Inf(-1)
		for _, c := range selected {
			start = math.Min(start, c.Position)
			end = math.Max(end, c.End())
		}
		span := end - start
		for _, c := range selected {
			cp := *c
			cp.ID = p.nextClip
			p.nextClip++
			cp.Position += span
			c.Selected = false
			p.clips = append(p.clips, &cp)
		}
		return
	}

	var out []*TrackState
	for _, t := range p.tracks {
		out = append(out, t)
		if !t.Selected {
			continue
		}
		cp := *t
		cp.ID = p.nextTrack
		p.nextTrack++
		cp.FX = slices.Clone(t.FX)
		t.Selected = false
		for _, c := range slices.Clone(p.clips) {
			if c.Track == t.ID {
				cc := *c
				cc.ID = p.nextClip
				p.nextClip++
				cc.Track = cp.ID
				p.clips = append(p.clips, &cc)
			}
		}
		out = append(out, &cp)
	}
	p.tracks = out
}

func (p *Project) BeginUndo() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.depth == 0 {
		p.snapshot = p.snapshotLocked()
	}
	p.depth++
}

func (p *Project) EndUndo(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.depth == 0 {
		return
	}
	p.depth--
	if p.depth == 0 {
		p.undo = append(p.undo, undoStep{name: name, before: p.snapshot})
		p.snapshot = nil
		if p.idle != nil {
			p.idle.Broadcast()
		}
	}
}

// waitIdleLocked blocks until no undo step is open. p.mu must be held.
func (p *Project) waitIdleLocked() {
	for p.depth > 0 {
		if p.idle == nil {
			p.idle = sync.NewCond(&p.mu)
		}
		p.idle.Wait()
	}
}

// Undo reverts the last recorded undo step and returns its name.
func (p *Project) Undo() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.undo) == 0 || p.depth > 0 {
		return "", false
	}
	step := p.undo[len(p.undo)-1]
	p.undo = p.undo[:len(p.undo)-1]
	p.restoreLocked(step.before)
	return step.name, true
}

// Clone returns a detached copy without undo history.
func (p *Project) Clone() *Project {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := NewProject()
	cp.restoreLocked(p.snapshotLocked())
	return cp
}

// CloneHost implements Cloner.
func (p *Project) CloneHost() Host { return p.Clone() }

// Replace swaps in another project's state and drops undo history. It waits
// for an open undo step to close first.
func (p *Project) Replace(other *Project) {
	snap := func() *projectSnapshot {
		other.mu.Lock()
		defer other.mu.Unlock()
		return other.snapshotLocked()
	}()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waitIdleLocked()
	p.restoreLocked(snap)
	p.undo = nil
}

// Describe renders the project one object per line, in a stable order.
func (p *Project) Describe() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var sb strings.Builder
	fmt.Fprintf(&sb, "cursor %.3f\n", p.cursor)
	if p.tsEnd > p.tsStart {
		fmt.Fprintf(&sb, "time selection %.3f-%.3f\n", p.tsStart, p.tsEnd)
	}
	for i, t := range p.tracks {
		fmt.Fprintf(&sb, "track %d %q vol=%.3f pan=%.2f mute=%t solo=%t fx=%s sel=%t\n",
			i+1, t.Name, t.Volume, t.Pan, t.Mute, t.Solo, strings.Join(t.FX, ","), t.Selected)
		for _, c := range p.clips {
			if c.Track != t.ID {
				continue
			}
			fmt.Fprintf(&sb, "  clip %.3f-%.3f fade_in=%.3f fade_out=%.3f offset=%.3f sel=%t\n",
				c.Position, c.End(), c.FadeIn, c.FadeOut, c.TakeOffset, c.Selected)
		}
	}
	return sb.String()
}

func (p *Project) clip(id ClipID) *ClipState {
	for _, c := range p.clips {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (p *Project) track(id TrackID) *TrackState {
	for _, t := range p.tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (p *Project) editClip(id ClipID, fn func(*ClipState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c := p.clip(id); c != nil {
		fn(c)
	}
}

func (p *Project) editTrack(id TrackID, fn func(*TrackState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t := p.track(id); t != nil {
		fn(t)
	}
}

func (p *Project) snapshotLocked() *projectSnapshot {
	s := &projectSnapshot{
		nextTrack: p.nextTrack,
		nextClip:  p.nextClip,
		cursor:    p.cursor,
		tsStart:   p.tsStart,
		tsEnd:     p.tsEnd,
	}
	for _, t := range p.tracks {
		cp := *t
		cp.FX = slices.Clone(t.FX)
		s.tracks = append(s.tracks, cp)
	}
	for _, c := range p.clips {
		s.clips = append(s.clips, *c)
	}
	return s
}

func (p *Project) restoreLocked(s *projectSnapshot) {
	p.tracks = p.tracks[:0]
	for _, t := range s.tracks {
		cp := t
		cp.FX = slices.Clone(t.FX)
		p.tracks = append(p.tracks, &cp)
	}
	p.clips = p.clips[:0]
	for _, c := range s.clips {
		cp := c
		p.clips = append(p.clips, &cp)
	}
	p.nextTrack, p.nextClip = s.nextTrack, s.nextClip
	p.cursor, p.tsStart, p.tsEnd = s.cursor, s.tsStart, s.tsEnd
}
