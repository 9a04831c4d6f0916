package daw

import "sort"

var presets = map[string]func() *Project{
	"items": func() *Project {
		p := NewProject()
		t := p.AddTrack("Track 1", false)
		p.AddClip(t, 42.1, 3.0, true)
		p.SetCursor(43.0)
		return p
	},
	"items2": func() *Project {
		p := NewProject()
		t := p.AddTrack("Track 1", false)
		p.AddClip(t, 42.1, 2.1, true)
		p.AddClip(t, 44.0, 2.5, true)
		p.SetCursor(44.1)
		return p
	},
	"tracks": func() *Project {
		p := NewProject()
		t := p.AddTrack("Lead Vox", true)
		p.AddClip(t, 40.0, 8.0, false)
		p.SetCursor(43.0)
		return p
	},
	"time": func() *Project {
		p := NewProject()
		t := p.AddTrack("Track 1", false)
		p.AddClip(t, 41.0, 5.0, false)
		p.SetTimeSelection(42.1, 44.1)
		p.SetCursor(43.0)
		return p
	},
	"none": func() *Project {
		p := NewProject()
		p.AddTrack("Track 1", false)
		p.SetCursor(43.0)
		return p
	},
}

// Preset builds one of the canned demo projects used by the REPL.
func Preset(name string) (*Project, bool) {
	build, ok := presets[name]
	if !ok {
		return nil, false
	}
	return build(), true
}

// PresetNames lists the available presets.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
