package audio

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by a Device operation the implementation does
// not support.
var ErrUnsupported = errors.New("audio: operation not supported by this device")

// Null is a Device that captures nothing and discards everything played to
// it. It is the default in environments with no real audio hardware (CI,
// containers) and in tests.
type Null struct{}

func (Null) Capture(ctx context.Context, sampleRate, frameSize int) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (Null) Play(ctx context.Context, sampleRate int, frame []byte) error { return nil }

func (Null) Close() error { return nil }
