// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package sleep implements the maintenance phases modeled on memory
// consolidation: sync captures and merges incoming writes, decay ages
// vitality along the Ebbinghaus curve, tidy archives and prunes, govern
// sweeps integrity. Each phase runs as a single transaction and is safe to
// repeat; callers choose the ordering.
package sleep

import (
	"github.com/smysle/agent-memory/internal/guard"
	"github.com/smysle/agent-memory/internal/memory"
)

// Engine runs the sleep-cycle phases against the entity layer.
type Engine struct {
	store *memory.Store
	guard *guard.Guard
}

// NewEngine creates a sleep-cycle engine.
func NewEngine(store *memory.Store) *Engine {
	return &Engine{
		store: store,
		guard: guard.New(store),
	}
}

// Store returns the underlying entity layer.
func (e *Engine) Store() *memory.Store {
	return e.store
}

// Guard returns the write guard the sync phase consults.
func (e *Engine) Guard() *guard.Guard {
	return e.guard
}
