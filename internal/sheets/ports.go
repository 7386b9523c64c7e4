package sheets

import (
	"context"

	"socios/internal/core"
)

// Ports for outbound adapters.
type (
	// RosterMirror replaces the content of an external spreadsheet with the
	// enriched roster.
	RosterMirror interface {
		MirrorRoster(ctx context.Context, entries []core.RosterEntry) error
	}
)
