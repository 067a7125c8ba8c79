package worker

import (
	"context"
	"sync"
)

// Task is one unit of work whose result slots into a fixed position.
type Task[T any] func(ctx context.Context) T

// Map runs tasks on at most workers goroutines and returns results in
// submission order regardless of completion order. Downstream dedup and id
// assignment depend on that ordering being reproducible. Tasks observe ctx
// and should return zero values on cancellation; Map itself always returns a
// fully populated slice.
func Map[T any](ctx context.Context, workers int, tasks []Task[T]) []T {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	results := make([]T, len(tasks))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				results[idx] = tasks[idx](ctx)
			}
		}()
	}

	for i := range tasks {
		select {
		case <-ctx.Done():
			// Stop feeding; already-claimed tasks finish, the rest keep
			// their zero results.
			close(indexes)
			wg.Wait()
			return results
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()
	return results
}
