// Package transport is the boundary to the realtime-audio collaborator. The
// core only needs two hooks into it (publish local audio for a room, release
// the room's resources) and one hook back (remote party left the room).
package transport

import "context"

// Rooms is the realtime-audio surface the engine drives. Implementations
// must make Release safe to call more than once per room.
type Rooms interface {
	// PublishAudio starts publishing the operator's audio into the room.
	PublishAudio(ctx context.Context, room string) error
	// Release stops publishing and frees local/remote resources for the room.
	Release(ctx context.Context, room string) error
}

// Noop satisfies Rooms without touching any SDK. Used when no transport keys
// are configured, and by tests.
type Noop struct{}

func (Noop) PublishAudio(context.Context, string) error { return nil }
func (Noop) Release(context.Context, string) error      { return nil }
