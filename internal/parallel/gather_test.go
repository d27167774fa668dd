package parallel

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

func TestGather_Completion(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	tests := []struct {
		n, misses int
	}{
		{0, 0},
		{1, 0},
		{1, 1},
		{10, 3},
		{64, 64},
		{100, 0},
	}

	for _, tt := range tests {
		g := NewGather[int](tt.n)
		for i := range tt.n {
			pool.Submit(func() {
				if i < tt.misses {
					g.Miss()
					return
				}
				g.Done(i)
			})
		}

		results, misses, err := g.Wait(context.Background())
		if err != nil {
			t.Fatalf("n=%d: Wait error: %v", tt.n, err)
		}
		if misses != tt.misses {
			t.Errorf("n=%d: misses = %d, want %d", tt.n, misses, tt.misses)
		}
		if len(results) != tt.n-tt.misses {
			t.Errorf("n=%d: len(results) = %d, want %d", tt.n, len(results), tt.n-tt.misses)
		}

		sort.Ints(results)
		for j, v := range results {
			if v != tt.misses+j {
				t.Errorf("n=%d: results[%d] = %d, want %d", tt.n, j, v, tt.misses+j)
				break
			}
		}
	}
}

func TestGather_WaitAfterTasksFinished(t *testing.T) {
	g := NewGather[string](2)
	g.Done("a")
	g.Miss()

	results, misses, err := g.Wait(context.Background())
	if err != nil || misses != 1 || len(results) != 1 || results[0] != "a" {
		t.Errorf("Wait() = %v, %d, %v", results, misses, err)
	}
}

func TestGather_Cancel(t *testing.T) {
	g := NewGather[int](2)
	g.Done(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	results, _, err := g.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait error = %v, want deadline exceeded", err)
	}
	if len(results) != 1 {
		t.Errorf("partial results = %v, want one", results)
	}

	// Late outcomes still have room in the buffer.
	g.Done(2)
}

func TestGather_TooManyOutcomesPanics(t *testing.T) {
	g := NewGather[int](1)
	g.Done(1)

	defer func() {
		if recover() == nil {
			t.Error("extra outcome should panic")
		}
	}()
	g.Miss()
}
