// Package worker fans a dynamically built list of independent jobs out
// across a fixed number of lanes and runs them under one of several
// execution strategies.
//
// Jobs are assigned to lanes round-robin at push time, so lane membership
// and result ordering are deterministic. A Worker is single-use: exactly
// one run method consumes it.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Job is an opaque asynchronous unit of work. The worker never inspects
// the produced value; a job whose output is discarded by the chosen run
// strategy is expected to handle and report its own failures (log, print).
// For collecting strategies T may itself encode success or failure.
type Job[T any] func(ctx context.Context) T

var (
	// ErrNoLanes is returned when a worker is constructed with fewer
	// than one lane.
	ErrNoLanes = errors.New("worker: lane count must be at least 1")

	// ErrConsumed is returned by a run method invoked on a worker that
	// has already been run.
	ErrConsumed = errors.New("worker: already consumed by a previous run")
)

// Worker partitions pushed jobs into lanes and executes them.
//
// Construct with New or NewWithLanes, Push jobs, then call exactly one
// run method. Worker is not safe for concurrent use; it is meant to be
// built and consumed from a single goroutine.
type Worker[T any] struct {
	laneCount int
	lanes     [][]Job[T]
	pushed    int
	consumed  bool
}

// New returns a worker with one lane per available CPU.
func New[T any]() *Worker[T] {
	w, err := NewWithLanes[T](runtime.NumCPU())
	if err != nil {
		// NumCPU is always >= 1.
		panic(err)
	}
	return w
}

// NewWithLanes returns a worker with an explicit lane count.
// A lane count below 1 is a configuration error, never coerced.
func NewWithLanes[T any](n int) (*Worker[T], error) {
	if n < 1 {
		return nil, ErrNoLanes
	}
	return &Worker[T]{
		laneCount: n,
		lanes:     make([][]Job[T], n),
	}, nil
}

// Lanes returns the lane count.
func (w *Worker[T]) Lanes() int { return w.laneCount }

// Len returns the number of jobs pushed so far.
func (w *Worker[T]) Len() int { return w.pushed }

// Push appends job to lane (pushed % laneCount). Within a lane, jobs keep
// push order.
func (w *Worker[T]) Push(job Job[T]) {
	lane := w.pushed % w.laneCount
	w.lanes[lane] = append(w.lanes[lane], job)
	w.pushed++
}

// Run starts one goroutine per lane and awaits that lane's jobs
// sequentially in push order, discarding outputs. It returns once every
// lane has finished. There is no ordering guarantee between lanes.
//
// A job panic aborts the remaining jobs of its own lane; other lanes run
// to completion and the first lane failure is returned to the caller.
func (w *Worker[T]) Run(ctx context.Context) error {
	if err := w.consume(); err != nil {
		return err
	}
	var eg errgroup.Group
	for _, jobs := range w.lanes {
		jobs := jobs
		eg.Go(func() (err error) {
			defer recoverJobPanic(&err)
			for _, job := range jobs {
				job(ctx)
			}
			return nil
		})
	}
	return eg.Wait()
}

// RunAndCollectResults schedules exactly like Run, but each lane
// accumulates its outputs in push order. The per-lane sequences are then
// concatenated in lane-index order.
//
// Note that with more than one lane the combined order is lane-major,
// NOT the original global push order: jobs 0..6 on 3 lanes come back as
// [0 3 6 1 4 2 5]. Callers that need push order must reorder themselves.
// On a lane failure no partial results are returned.
func (w *Worker[T]) RunAndCollectResults(ctx context.Context) ([]T, error) {
	if err := w.consume(); err != nil {
		return nil, err
	}
	perLane := make([][]T, len(w.lanes))
	var eg errgroup.Group
	for i, jobs := range w.lanes {
		i, jobs := i, jobs
		eg.Go(func() (err error) {
			defer recoverJobPanic(&err)
			res := make([]T, 0, len(jobs))
			for _, job := range jobs {
				res = append(res, job(ctx))
			}
			perLane[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return concat(perLane, w.pushed), nil
}

// RunAllJoined starts one goroutine per lane and, inside each lane,
// launches all of that lane's jobs concurrently. Each lane waits for its
// own jobs, and the call returns once every lane has drained. Peak
// concurrency is therefore unbounded within a lane.
func (w *Worker[T]) RunAllJoined(ctx context.Context) error {
	if err := w.consume(); err != nil {
		return err
	}
	var eg errgroup.Group
	for _, jobs := range w.lanes {
		jobs := jobs
		eg.Go(func() error {
			return fanOut(ctx, jobs, nil)
		})
	}
	return eg.Wait()
}

// RunAllJoinedAndCollectResults schedules like RunAllJoined and collects
// outputs. Within a lane results follow launch (push) order regardless of
// completion order; lanes are concatenated by lane index, with the same
// lane-major ordering caveat as RunAndCollectResults.
func (w *Worker[T]) RunAllJoinedAndCollectResults(ctx context.Context) ([]T, error) {
	if err := w.consume(); err != nil {
		return nil, err
	}
	perLane := make([][]T, len(w.lanes))
	var eg errgroup.Group
	for i, jobs := range w.lanes {
		i, jobs := i, jobs
		eg.Go(func() error {
			res := make([]T, len(jobs))
			if err := fanOut(ctx, jobs, res); err != nil {
				return err
			}
			perLane[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return concat(perLane, w.pushed), nil
}

// RunSingleThreaded ignores the lane structure: it flattens all jobs back
// into global push order and runs them in bounded concurrent batches from
// the calling goroutine, spawning no per-lane workers.
//
// A batchSize below 1 defaults to the lane count. When the total job
// count fits in one batch, all jobs run concurrently at once. Otherwise
// the flattened list is split round-robin into ceil(total/batchSize)
// chunks (job i lands in chunk i % chunkCount, not a contiguous slice)
// and the chunks run strictly one after another, each chunk's jobs
// concurrently. This caps in-flight jobs at batchSize, which is the
// strategy to reach for when uncontrolled fan-out would exhaust
// connection limits.
func (w *Worker[T]) RunSingleThreaded(ctx context.Context, batchSize int) error {
	if err := w.consume(); err != nil {
		return err
	}
	if batchSize < 1 {
		batchSize = w.laneCount
	}
	for _, chunk := range chunkRoundRobin(w.flatten(), batchSize) {
		if err := fanOut(ctx, chunk, nil); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker[T]) consume() error {
	if w.consumed {
		return ErrConsumed
	}
	w.consumed = true
	return nil
}

// flatten restores global push order: the job pushed at index p sits at
// lanes[p % laneCount][p / laneCount].
func (w *Worker[T]) flatten() []Job[T] {
	flat := make([]Job[T], 0, w.pushed)
	for p := 0; p < w.pushed; p++ {
		flat = append(flat, w.lanes[p%w.laneCount][p/w.laneCount])
	}
	return flat
}

// fanOut launches every job concurrently and waits for all of them.
// When results is non-nil it must have len(jobs) slots; job j writes
// results[j], so collected order follows launch order. A panicking job is
// recorded as the fan-out error without aborting its siblings.
func fanOut[T any](ctx context.Context, jobs []Job[T], results []T) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for j, job := range jobs {
		j, job := j, job
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("worker: job panicked: %v", r)
					}
					mu.Unlock()
				}
			}()
			v := job(ctx)
			if results != nil {
				results[j] = v
			}
		}()
	}
	wg.Wait()
	return firstErr
}

func recoverJobPanic(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("worker: job panicked: %v", r)
	}
}

func concat[T any](perLane [][]T, total int) []T {
	out := make([]T, 0, total)
	for _, res := range perLane {
		out = append(out, res...)
	}
	return out
}

func chunkRoundRobin[T any](jobs []Job[T], batchSize int) [][]Job[T] {
	if len(jobs) == 0 {
		return nil
	}
	if len(jobs) <= batchSize {
		return [][]Job[T]{jobs}
	}
	chunkCount := (len(jobs) + batchSize - 1) / batchSize
	chunks := make([][]Job[T], chunkCount)
	for i, job := range jobs {
		chunks[i%chunkCount] = append(chunks[i%chunkCount], job)
	}
	return chunks
}
