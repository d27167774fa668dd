package parallel

import (
	"context"
	"sync/atomic"
)

// outcome is what a task reports: one result, or a miss.
type outcome[T any] struct {
	value T
	miss  bool
}

// Gather collects the outcomes of a fixed number of tasks.
//
// Every task must call exactly one of Done or Miss. Wait returns once all
// expected outcomes have arrived, with the results of the tasks that called
// Done. Misses reduce the result count without blocking completion.
type Gather[T any] struct {
	expected  int
	ch        chan outcome[T]
	sent      atomic.Int64
	delivered atomic.Int64
}

// NewGather prepares a collector for n tasks. The channel is buffered for
// all n outcomes so tasks never block on a slow aggregator.
func NewGather[T any](n int) *Gather[T] {
	return &Gather[T]{
		expected: n,
		ch:       make(chan outcome[T], n),
	}
}

// Expected returns the number of outcomes Wait waits for.
func (g *Gather[T]) Expected() int { return g.expected }

// Done reports a result.
func (g *Gather[T]) Done(v T) {
	g.send(outcome[T]{value: v})
}

// Miss reports that a task has nothing to contribute.
func (g *Gather[T]) Miss() {
	g.send(outcome[T]{miss: true})
}

func (g *Gather[T]) send(o outcome[T]) {
	n := g.sent.Add(1)
	if int(n) > g.expected {
		panic("parallel: more outcomes than expected tasks")
	}
	g.ch <- o
	if int(g.delivered.Add(1)) == g.expected {
		close(g.ch)
	}
}

// Wait blocks until every task has reported or ctx is done. It returns the
// results in arrival order and the number of misses. On cancellation the
// results received so far are returned with ctx.Err(); the remaining tasks
// still run and their outcomes are discarded.
func (g *Gather[T]) Wait(ctx context.Context) (results []T, misses int, err error) {
	if g.expected == 0 {
		return nil, 0, nil
	}
	results = make([]T, 0, g.expected)
	for {
		select {
		case o, ok := <-g.ch:
			if !ok {
				return results, misses, nil
			}
			if o.miss {
				misses++
			} else {
				results = append(results, o.value)
			}
		case <-ctx.Done():
			return results, misses, ctx.Err()
		}
	}
}
