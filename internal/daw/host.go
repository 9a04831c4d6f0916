// Package daw defines the capability surface cutline consumes from a Digital
// Audio Workstation, and ships an in-memory Project that implements it.
//
// The surface is deliberately primitive: enumerate the selection, read and
// write clip and track state, split and delete clips, insert an effect, and
// bracket a batch of edits in one named undo transaction. Everything
// higher-level (fades, crossfades, cut-middle) is composed by the dispatcher.
package daw

// ClipID identifies a clip (media item) inside a host.
type ClipID int

// TrackID identifies a track inside a host.
type TrackID int

// ClipState is a read-only copy of a clip's editable properties.
type ClipState struct {
	ID         ClipID
	Track      TrackID
	Position   float64 // seconds
	Length     float64 // seconds
	FadeIn     float64 // seconds
	FadeOut    float64 // seconds
	TakeOffset float64 // start offset of the active take, seconds
	Selected   bool
}

// End returns the clip's end position.
func (c ClipState) End() float64 { return c.Position + c.Length }

// TrackState is a read-only copy of a track's mixer state.
type TrackState struct {
	ID       TrackID
	Name     string
	Index    int     // 1-based position in the track list
	Volume   float64 // linear gain, 1.0 = 0 dB
	Pan      float64 // -1 (left) .. 1 (right)
	Mute     bool
	Solo     bool
	FX       []string
	Selected bool
}

// Reader is the read side of the host: selection, timeline and object state.
type Reader interface {
	// SelectedClips returns selected clips in selection order.
	SelectedClips() []ClipID
	// SelectedTracks returns selected tracks in selection order.
	SelectedTracks() []TrackID
	Clip(id ClipID) (ClipState, bool)
	Track(id TrackID) (TrackState, bool)
	// ClipsAt returns every clip whose span contains pos.
	ClipsAt(pos float64) []ClipID
	// ClipsIn returns every clip overlapping [start, end).
	ClipsIn(start, end float64) []ClipID
	Cursor() float64
	// TimeSelection returns the marked range; end <= start means none.
	TimeSelection() (start, end float64)
}

// Editor is the write side of the host.
type Editor interface {
	SetClipPosition(id ClipID, pos float64)
	SetClipLength(id ClipID, length float64)
	SetFadeIn(id ClipID, seconds float64)
	SetFadeOut(id ClipID, seconds float64)
	SetTakeOffset(id ClipID, offset float64)
	// SplitClip splits a clip at an absolute position and returns the
	// right-hand part. It reports false when pos is not strictly inside.
	SplitClip(id ClipID, pos float64) (ClipID, bool)
	DeleteClip(id ClipID)

	SetTrackVolume(id TrackID, gain float64)
	SetTrackPan(id TrackID, pan float64)
	SetTrackMute(id TrackID, mute bool)
	SetTrackSolo(id TrackID, solo bool)
	InsertFX(id TrackID, name string) error

	// DuplicateSelection triggers the host's native "duplicate selection".
	DuplicateSelection()

	// BeginUndo and EndUndo bracket one undo step. Calls must be paired.
	BeginUndo()
	EndUndo(name string)
}

// Host is the full capability surface.
type Host interface {
	Reader
	Editor
}

// Undoer is implemented by hosts that can revert the last undo step.
type Undoer interface {
	Undo() (string, bool)
}

// Cloner is implemented by hosts that can produce a detached copy of their
// state, used for dry-run previews.
type Cloner interface {
	CloneHost() Host
}

// Describer is implemented by hosts that can render their state as text.
type Describer interface {
	Describe() string
}
