// Package state holds the two snapshots exchanged between the audio
// processing goroutine and the interactive one, and the counter protocol that
// keeps them in step.
package state

import (
	"github.com/joeycumines/script-garden/internal/module"
	"github.com/joeycumines/script-garden/internal/storage"
)

// RuntimeState is the lifecycle state of the runtime, and also the target
// the interface asks it to reach.
type RuntimeState int

const (
	// Offline: nothing is processed. A module may still be loaded.
	Offline RuntimeState = iota
	// Refresh: reload the module from the selected source on the next block.
	Refresh
	// Clear: unload the module on the next block.
	Clear
	// Online: a module is loaded and runs on every block.
	Online
)

func (s RuntimeState) String() string {
	switch s {
	case Offline:
		return "Offline"
	case Refresh:
		return "Refresh"
	case Clear:
		return "Clear"
	case Online:
		return "Online"
	}
	return "Unknown"
}

// SourceMode selects where module content is loaded from.
type SourceMode int

const (
	SourceDraft SourceMode = iota
	SourceWorkspace
)

func (m SourceMode) String() string {
	if m == SourceWorkspace {
		return "workspace"
	}
	return "draft"
}

// Source is the content source selected in the interface. Workspace is a
// value copied with the snapshot; refreshing it from disk is the interface's
// job.
type Source struct {
	Mode      SourceMode
	Draft     module.Content
	Workspace storage.Workspace
}

// Content returns the content of the selected source. It reports false when
// workspace mode is selected without a workspace.
func (s Source) Content() (module.Content, bool) {
	if s.Mode == SourceWorkspace {
		if s.Workspace.Path == "" {
			return module.Content{}, false
		}
		return s.Workspace.Content, true
	}
	return s.Draft, true
}
