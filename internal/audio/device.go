// Package audio seams the host audio device out of the listener/speaker
// reference nodes so they stay constructible and testable without real
// hardware or a CGo audio binding, the way the node base already separates
// construction from I/O.
package audio

import "context"

// Device is a single-channel, 16-bit PCM audio device: a capture stream to
// read frames from, a playback stream to write frames to, or both.
type Device interface {
	// Capture starts delivering captured frames on the returned channel
	// until ctx is cancelled. Implementations that cannot capture
	// return a nil channel and ErrUnsupported.
	Capture(ctx context.Context, sampleRate, frameSize int) (<-chan []byte, error)
	// Play writes one frame of audio out. Implementations that cannot
	// play return ErrUnsupported.
	Play(ctx context.Context, sampleRate int, frame []byte) error
	// Close releases the device.
	Close() error
}
