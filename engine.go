package main

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"
)

// Progress receives per-file completion events from the stats workers.
// Implementations must be safe for concurrent use.
type Progress interface {
	Start(total int)
	Increment()
	Finish()
}

type noProgress struct{}

func (noProgress) Start(int)  {}
func (noProgress) Increment() {}
func (noProgress) Finish()    {}

// Engine runs discovery, per-file stats and aggregation for one root.
type Engine struct {
	Tokenizer Tokenizer
	Workers   int // 0 means runtime.NumCPU()
	Logger    *slog.Logger // nil means slog.Default()
	Progress  Progress
}

func (e *Engine) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.NumCPU()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Engine) progress() Progress {
	if e.Progress == nil {
		return noProgress{}
	}
	return e.Progress
}

// Run discovers every matching file under root and returns the aggregate of
// their stats. Only a bad root is an error; unreadable directories and files
// degrade the result instead.
func (e *Engine) Run(root string, opts DiscoverOptions) (Aggregate, error) {
	if opts.Workers <= 0 {
		opts.Workers = e.workers()
	}

	files, err := Discover(root, opts, e.logger())
	if err != nil {
		return nil, err
	}
	e.logger().Debug("discovery finished", "root", root, "files", len(files))

	return e.Process(files), nil
}

// Process computes stats for files on a pool of workers. Each worker folds
// its share into a private aggregate; the partial aggregates are merged once
// all workers are done.
func (e *Engine) Process(files []FileRecord) Aggregate {
	numWorkers := min(e.workers(), max(len(files), 1))

	prog := e.progress()
	prog.Start(len(files))
	defer prog.Finish()

	jobs := make(chan FileRecord, len(files))
	partials := make(chan Aggregate, numWorkers)
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go e.statsWorker(jobs, partials, &wg)
	}

	for _, file := range files {
		jobs <- file
	}
	close(jobs)

	wg.Wait()
	close(partials)

	result := Aggregate{}
	for p := range partials {
		result = Merge(result, p)
	}
	return result
}

func (e *Engine) statsWorker(jobs <-chan FileRecord, partials chan<- Aggregate, wg *sync.WaitGroup) {
	defer wg.Done()

	prog := e.progress()
	acc := Aggregate{}
	for rec := range jobs {
		stats, err := ComputeStats(rec, e.Tokenizer)
		switch {
		case err == nil:
		case errors.Is(err, ErrTokenize):
			e.logger().Warn("tokenizer failed, counting file with zero tokens", "path", rec.Path, "error", err)
		default:
			e.logger().Debug("could not read file, counting it with zero tokens", "path", rec.Path, "error", err)
		}
		acc.add(rec.Extension, stats)
		prog.Increment()
	}
	partials <- acc
}
