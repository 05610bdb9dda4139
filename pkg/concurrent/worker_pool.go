package concurrent

import (
	"sync"
)

type JobFunc[T any, G any] func(job T) G

type WorkerPool[T any, G any] struct {
	numWorkers int
	jobQueue   chan T
	results    chan G
	wg         sync.WaitGroup
}

func NewWorkerPool[T any, G any](numWorkers, jobQueueSize int) *WorkerPool[T, G] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T, G]{
		numWorkers: numWorkers,
		jobQueue:   make(chan T, jobQueueSize),
		results:    make(chan G, jobQueueSize),
	}
}

func (wp *WorkerPool[T, G]) worker(jobFunc JobFunc[T, G]) {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		wp.results <- jobFunc(job)
	}
}

func (wp *WorkerPool[T, G]) Start(jobFunc JobFunc[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(jobFunc)
	}
}

// Wait blocks until every worker has drained the (closed) job queue, then closes results.
func (wp *WorkerPool[T, G]) Wait() {
	wp.wg.Wait()
	close(wp.results)
}

func (wp *WorkerPool[T, G]) AddJob(job T) {
	wp.jobQueue <- job
}

func (wp *WorkerPool[T, G]) CollectResults() chan G {
	return wp.results
}

func (wp *WorkerPool[T, G]) Close() {
	close(wp.jobQueue)
}

// Indexed pairs a job or result with its position in the input.
type Indexed[T any] struct {
	Index int
	Value T
}

// Map runs fn over jobs on numWorkers goroutines and returns the results in input order.
func Map[T any, G any](numWorkers int, jobs []T, fn func(T) G) []G {
	out := make([]G, len(jobs))
	if len(jobs) == 0 {
		return out
	}

	wp := NewWorkerPool[Indexed[T], Indexed[G]](numWorkers, len(jobs))
	wp.Start(func(job Indexed[T]) Indexed[G] {
		return Indexed[G]{Index: job.Index, Value: fn(job.Value)}
	})
	for i, job := range jobs {
		wp.AddJob(Indexed[T]{Index: i, Value: job})
	}
	wp.Close()
	wp.Wait()

	for res := range wp.CollectResults() {
		out[res.Index] = res.Value
	}
	return out
}
