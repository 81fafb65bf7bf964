// Package platform describes the lifecycle every market platform adapter
// shares with the binary that runs it.
package platform

import (
	"context"
)

// Platform is a background adapter to one prediction market venue.
// Start must not block; Stop waits for background work to finish or for
// ctx to expire.
type Platform interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
