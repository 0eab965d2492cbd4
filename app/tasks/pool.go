package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Pool executes tasks either sequentially or on a bounded set of workers.
// Task i always reports into slot i of the returned errors.
type Pool struct {
	workerCount int
	sequential  bool
}

func NewPool(workerCount int, sequential bool) *Pool {
	return &Pool{
		workerCount: max(workerCount, 1),
		sequential:  sequential,
	}
}

// Run blocks until every task has finished.
func (p *Pool) Run(ctx context.Context, tasks []TaskInterface) []error {
	errs := make([]error, len(tasks))

	if p.sequential || len(tasks) <= 1 {
		for i, task := range tasks {
			errs[i] = p.executeTask(ctx, 0, task)
		}
		return errs
	}

	queue := make(chan int, len(tasks))
	for i := range tasks {
		queue <- i
	}
	close(queue)

	var wg sync.WaitGroup
	for id := range min(p.workerCount, len(tasks)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				errs[i] = p.executeTask(ctx, id, tasks[i])
			}
		}()
	}
	wg.Wait()

	return errs
}

func (p *Pool) executeTask(ctx context.Context, workerID int, task TaskInterface) error {
	task.Start()
	err := runTask(ctx, task)
	task.Finish()

	if err != nil {
		slog.Error("Worker task execution failed",
			"worker_id", workerID,
			"type", string(task.GetType()),
			"id", task.GetID(),
			"feed", task.GetFeedName(),
			"error", err)
	}

	return err
}

// runTask converts a panic in task into an error for its slot.
func runTask(ctx context.Context, task TaskInterface) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	return task.Execute(ctx)
}
