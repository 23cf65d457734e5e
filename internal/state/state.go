// Package state persists session mode and the pending language hint between
// dictation processes.
package state

import (
	"context"
	"errors"
	"time"
)

// Snapshot is the persisted part of a dictation session.
type Snapshot struct {
	Mode                string    `json:"mode,omitempty" msgpack:"mode,omitempty"`
	PendingLanguageHint string    `json:"pending_language_hint,omitempty" msgpack:"pending_language_hint,omitempty"`
	UpdatedAt           time.Time `json:"updated_at,omitempty" msgpack:"updated_at,omitempty"`
}

// Store loads and saves one Snapshot. A store that has never been written
// loads as the zero Snapshot.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Clear(ctx context.Context) error
}

// ErrUnknownBackend is returned by Open for unsupported backends.
var ErrUnknownBackend = errors.New("unknown state backend")
