package workflow

import (
	"context"
	"sync"
)

// Task is one unit of per-asset work executed by the pool.
type Task struct {
	AssetID string
	Run     func(ctx context.Context) error
}

// TaskResult pairs a task with its outcome.
type TaskResult struct {
	AssetID string
	Err     error
}

// RunPool executes tasks across a bounded number of workers, each task under
// its asset's shard lock. Results preserve task order. Cancellation is
// best-effort: tasks not yet started when the context is done report the
// context error without running.
func RunPool(ctx context.Context, concurrency int, locks *AssetLocks, tasks []Task) []TaskResult {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]TaskResult, len(tasks))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				task := tasks[idx]
				if err := ctx.Err(); err != nil {
					results[idx] = TaskResult{AssetID: task.AssetID, Err: err}
					continue
				}
				err := locks.WithLock(task.AssetID, func() error {
					return task.Run(ctx)
				})
				results[idx] = TaskResult{AssetID: task.AssetID, Err: err}
			}
		}()
	}

	for idx := range tasks {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return results
}
