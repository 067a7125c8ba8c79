package worker

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"
)

func TestMap_PreservesSubmissionOrder(t *testing.T) {
	tasks := make([]Task[int], 50)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) int {
			time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
			return i * 2
		}
	}

	results := Map(context.Background(), 8, tasks)
	if len(results) != 50 {
		t.Fatalf("expected 50 results, got %d", len(results))
	}
	for i, r := range results {
		if r != i*2 {
			t.Fatalf("result %d out of order: got %d", i, r)
		}
	}
}

func TestMap_BoundsConcurrency(t *testing.T) {
	var active, peak int64
	tasks := make([]Task[struct{}], 20)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) struct{} {
			cur := atomic.AddInt64(&active, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if cur <= p || atomic.CompareAndSwapInt64(&peak, p, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt64(&active, -1)
			return struct{}{}
		}
	}

	Map(context.Background(), 3, tasks)
	if got := atomic.LoadInt64(&peak); got > 3 {
		t.Errorf("concurrency exceeded bound: peak %d", got)
	}
}

func TestMap_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var started int64
	tasks := make([]Task[int], 100)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) int {
			atomic.AddInt64(&started, 1)
			if i == 0 {
				cancel()
			}
			return 1
		}
	}

	results := Map(ctx, 1, tasks)
	if len(results) != 100 {
		t.Fatalf("result slice must stay fully sized, got %d", len(results))
	}
	if atomic.LoadInt64(&started) == 100 {
		t.Error("cancellation should stop feeding remaining tasks")
	}
}
