package daw

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// projectFile is the on-disk YAML layout of a Project.
type projectFile struct {
	Cursor        float64     `yaml:"cursor"`
	TimeSelection *rangeFile  `yaml:"time_selection,omitempty"`
	Tracks        []trackFile `yaml:"tracks"`
}

type rangeFile struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

type trackFile struct {
	Name     string     `yaml:"name"`
	Selected bool       `yaml:"selected,omitempty"`
	Volume   *float64   `yaml:"volume,omitempty"`
	Pan      float64    `yaml:"pan,omitempty"`
	Mute     bool       `yaml:"mute,omitempty"`
	Solo     bool       `yaml:"solo,omitempty"`
	FX       []string   `yaml:"fx,omitempty"`
	Clips    []clipFile `yaml:"clips,omitempty"`
}

type clipFile struct {
	Position   float64 `yaml:"position"`
	Length     float64 `yaml:"length"`
	FadeIn     float64 `yaml:"fade_in,omitempty"`
	FadeOut    float64 `yaml:"fade_out,omitempty"`
	TakeOffset float64 `yaml:"take_offset,omitempty"`
	Selected   bool    `yaml:"selected,omitempty"`
}

// ParseProject decodes a YAML project description.
func ParseProject(data []byte) (*Project, error) {
	var f projectFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding project: %w", err)
	}

	p := NewProject()
	p.cursor = f.Cursor
	if f.TimeSelection != nil {
		p.tsStart, p.tsEnd = f.TimeSelection.Start, f.TimeSelection.End
	}
	for i, tf := range f.Tracks {
		if tf.Name == "" {
			tf.Name = fmt.Sprintf("Track %d", i+1)
		}
		id := p.AddTrack(tf.Name, tf.Selected)
		t := p.track(id)
		if tf.Volume != nil {
			t.Volume = *tf.Volume
		}
		t.Pan, t.Mute, t.Solo = tf.Pan, tf.Mute, tf.Solo
		t.FX = append(t.FX, tf.FX...)
		for _, cf := range tf.Clips {
			if cf.Length <= 0 {
				return nil, fmt.Errorf("track %q: clip at %.3f has non-positive length", tf.Name, cf.Position)
			}
			cid := p.AddClip(id, cf.Position, cf.Length, cf.Selected)
			c := p.clip(cid)
			c.FadeIn, c.FadeOut, c.TakeOffset = cf.FadeIn, cf.FadeOut, cf.TakeOffset
		}
	}
	return p, nil
}

// LoadProject reads a YAML project from disk.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project: %w", err)
	}
	return ParseProject(data)
}

// Marshal encodes the project as YAML.
// An open undo step is waited out so a half-applied batch is never encoded.
func (p *Project) Marshal() ([]byte, error) {
	p.mu.Lock()
	p.waitIdleLocked()
	f := projectFile{Cursor: p.cursor}
	if p.tsEnd > p.tsStart {
		f.TimeSelection = &rangeFile{Start: p.tsStart, End: p.tsEnd}
	}
	for _, t := range p.tracks {
		vol := t.Volume
		tf := trackFile{Name: t.Name, Selected: t.Selected, Volume: &vol, Pan: t.Pan, Mute: t.Mute, Solo: t.Solo, FX: t.FX}
		for _, c := range p.clips {
			if c.Track != t.ID {
				continue
			}
			tf.Clips = append(tf.Clips, clipFile{
				Position: c.Position, Length: c.Length,
				FadeIn: c.FadeIn, FadeOut: c.FadeOut,
				TakeOffset: c.TakeOffset, Selected: c.Selected,
			})
		}
		f.Tracks = append(f.Tracks, tf)
	}
	p.mu.Unlock()

	data, err := yaml.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("encoding project: %w", err)
	}
	return data, nil
}

// Save writes the project to path atomically (temp file + rename).
func (p *Project) Save(path string) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".project-*.yaml")
	if err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("saving project: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("saving project: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	p.mu.Lock()
	p.written = data
	p.mu.Unlock()
	return nil
}

// Watch reloads the project from path whenever the file is written or
// recreated, so selection changes made outside cutline are seen by the next
// capture. Reloaded state is handed to replace, which must eventually call
// p.Replace; nil means call it directly. It blocks until ctx is cancelled.
func (p *Project) Watch(ctx context.Context, path string, replace func(fresh *Project)) error {
	if replace == nil {
		replace = p.Replace
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors and Save replace the file via rename.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	target := filepath.Clean(path)
	slog.Info("watching project file", "path", target)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("project reload failed", "path", path, "error", err)
				continue
			}
			if p.wroteLast(data) {
				// Our own Save; reloading would only drop undo history.
				continue
			}
			fresh, err := ParseProject(data)
			if err != nil {
				slog.Warn("project reload failed", "path", path, "error", err)
				continue
			}
			replace(fresh)
			slog.Debug("project reloaded", "path", path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("project watcher error", "error", err)
		}
	}
}

func (p *Project) wroteLast(data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written != nil && bytes.Equal(p.written, data)
}
