// Package speech seams the external transcription/synthesis service out of
// the transcriber/tts reference nodes: construction validates a provider by
// name without ever reaching the network, matching the rest of this
// runtime's constructor-never-does-I/O convention.
package speech

import (
	"context"
	"fmt"
)

// Provider is a speech-to-text/text-to-speech backend.
type Provider interface {
	// Transcribe returns the final transcript for one chunk of PCM16
	// audio sampled at rate Hz. A real provider streams; this runtime's
	// contract only needs the final result per chunk.
	Transcribe(ctx context.Context, audio []byte, sampleRateHz int) (string, error)
	// Synthesize returns PCM16 audio sampled at rate Hz for text.
	Synthesize(ctx context.Context, text string, sampleRateHz int) ([]byte, error)
}

// Local is a no-network Provider: Transcribe returns the empty string,
// Synthesize returns silence. It is the default so transcriber/tts nodes
// are constructible and runnable in tests and in deployments without a
// speech backend configured.
type Local struct{}

func (Local) Transcribe(ctx context.Context, audio []byte, sampleRateHz int) (string, error) {
	return "", nil
}

func (Local) Synthesize(ctx context.Context, text string, sampleRateHz int) ([]byte, error) {
	return nil, nil
}

// registry maps a provider name (as configured via node_args) to a
// constructor, so node_args can name a provider without the nodes package
// importing every possible speech backend directly.
var registry = map[string]func(apiKey string) (Provider, error){
	"local": func(string) (Provider, error) { return Local{}, nil },
}

// Register binds name to a provider constructor. A deployment that wires a
// real speech backend calls this from its own init() before the dataflow
// starts.
func Register(name string, ctor func(apiKey string) (Provider, error)) {
	registry[name] = ctor
}

// New constructs the named provider. Validation (e.g. that the named
// provider exists) happens here, at construction, never at first use.
func New(name, apiKey string) (Provider, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("no speech provider registered as %q", name)
	}
	return ctor(apiKey)
}
