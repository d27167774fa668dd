package glyphatlas

import (
	"context"
	"fmt"
	"sync"
)

// SDFLoader fetches pre-baked distance-field tiles for config-mode glyphs.
type SDFLoader interface {
	// LoadSDF returns one single channel tile per char, in order. Tile i is
	// the glyph's configured width times height bytes.
	LoadSDF(ctx context.Context, face string, chars []rune) ([][]byte, error)
}

// SDFLoaderFunc adapts a function to SDFLoader.
type SDFLoaderFunc func(ctx context.Context, face string, chars []rune) ([][]byte, error)

// LoadSDF implements SDFLoader.
func (f SDFLoaderFunc) LoadSDF(ctx context.Context, face string, chars []rune) ([][]byte, error) {
	return f(ctx, face, chars)
}

// LoadRequest is a tile request handed to the host by an AsyncLoader.
type LoadRequest struct {
	// Key must be passed back to Complete or Fail.
	Key   uint64
	Face  string
	Chars []rune
}

type loadResult struct {
	data [][]byte
	err  error
}

// AsyncLoader is an SDFLoader fulfilled by the host. Each LoadSDF call hands
// a LoadRequest to the request callback and blocks until the host calls
// Complete or Fail with the request's key, or the context is done.
//
// AsyncLoader is safe for concurrent use.
type AsyncLoader struct {
	request func(LoadRequest)

	mu      sync.Mutex
	next    uint64
	pending map[uint64]chan loadResult
}

// NewAsyncLoader creates a loader that announces requests through request.
// request must not block; it typically forwards the request to another
// thread or process.
func NewAsyncLoader(request func(LoadRequest)) *AsyncLoader {
	return &AsyncLoader{
		request: request,
		pending: make(map[uint64]chan loadResult),
	}
}

// LoadSDF implements SDFLoader.
func (l *AsyncLoader) LoadSDF(ctx context.Context, face string, chars []rune) ([][]byte, error) {
	ch := make(chan loadResult, 1)

	l.mu.Lock()
	l.next++
	key := l.next
	l.pending[key] = ch
	l.mu.Unlock()

	l.request(LoadRequest{Key: key, Face: face, Chars: append([]rune(nil), chars...)})

	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		l.mu.Lock()
		delete(l.pending, key)
		l.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (l *AsyncLoader) resolve(key uint64, r loadResult) error {
	l.mu.Lock()
	ch, ok := l.pending[key]
	delete(l.pending, key)
	l.mu.Unlock()

	if !ok {
		return fmt.Errorf("glyphatlas: no pending load %d", key)
	}
	ch <- r
	return nil
}

// Complete delivers the tiles for the request with the given key.
func (l *AsyncLoader) Complete(key uint64, data [][]byte) error {
	return l.resolve(key, loadResult{data: data})
}

// Fail aborts the request with the given key.
func (l *AsyncLoader) Fail(key uint64, err error) error {
	return l.resolve(key, loadResult{err: err})
}

// Pending returns the number of requests waiting for the host.
func (l *AsyncLoader) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
