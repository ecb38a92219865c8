package state

import (
	"sync"
)

// Shared holds the published copies of both snapshots, each behind its own
// lock. The interactive side may take the interface lock and then the runtime
// lock; the processing side only ever holds one lock at a time, and only for
// a copy.
type Shared struct {
	uiMu sync.RWMutex
	ui   InterfaceData

	rtMu sync.RWMutex
	rt   RuntimeData
}

// NewShared publishes the initial snapshots.
func NewShared(ui InterfaceData, rt RuntimeData) *Shared {
	s := &Shared{ui: ui.Clone()}
	rt.publishInto(&s.rt)
	return s
}

// UpdateInterface runs fn with exclusive access to the interface snapshot.
// fn must not block.
func (s *Shared) UpdateInterface(fn func(*InterfaceData)) {
	s.uiMu.Lock()
	defer s.uiMu.Unlock()
	fn(&s.ui)
}

// Interface returns a copy of the interface snapshot.
func (s *Shared) Interface() InterfaceData {
	s.uiMu.RLock()
	defer s.uiMu.RUnlock()
	return s.ui.Clone()
}

// Runtime returns a copy of the last published runtime snapshot.
func (s *Shared) Runtime() RuntimeData {
	s.rtMu.RLock()
	defer s.rtMu.RUnlock()
	return s.rt.Clone()
}

// SyncInterface folds the published runtime snapshot into the interface
// snapshot. Called from the interactive side.
func (s *Shared) SyncInterface() bool {
	s.uiMu.Lock()
	defer s.uiMu.Unlock()
	s.rtMu.RLock()
	defer s.rtMu.RUnlock()
	return s.ui.SyncFromRuntime(&s.rt)
}

// PullInterface folds the interface snapshot into the processor's working
// copy. Called from the processing side; it copies nothing unless the
// interface counter moved.
func (s *Shared) PullInterface(dst *RuntimeData) bool {
	s.uiMu.RLock()
	defer s.uiMu.RUnlock()
	return dst.SyncFromInterface(&s.ui)
}

// PublishRuntime makes the processor's working copy visible to the
// interactive side if it changed since the last publish.
func (s *Shared) PublishRuntime(src *RuntimeData) bool {
	s.rtMu.Lock()
	defer s.rtMu.Unlock()
	if src.Change == s.rt.Change {
		return false
	}
	src.publishInto(&s.rt)
	return true
}
