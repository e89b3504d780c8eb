// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"runtime"
	"sync"

	"lichen-scan/internal/core"
	"lichen-scan/internal/observability"
)

// WorkerPool fans file paths out over a fixed number of workers sharing
// one read-only scanner. Results come back in input order regardless of
// which worker finished first.
type WorkerPool struct {
	workers  int
	observer *observability.StandardObserver
}

// NewWorkerPool creates a pool. workers <= 0 defaults to GOMAXPROCS.
func NewWorkerPool(workers int, observer *observability.StandardObserver) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &WorkerPool{workers: workers, observer: observer}
}

// Workers returns the configured worker count.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

type job struct {
	index int
	path  string
}

// ScanFiles scans every path and returns one FileDetections per input,
// in input order. Cancelling the context stops scheduling new files; the
// remaining slots report the context error.
func (wp *WorkerPool) ScanFiles(ctx context.Context, scanner *core.Scanner, paths []string) []core.FileDetections {
	results := make([]core.FileDetections, len(paths))
	if len(paths) == 0 {
		return results
	}

	var done func(bool, map[string]interface{})
	if wp.observer != nil {
		done = wp.observer.StartTiming("worker_pool", "scan_files", "")
	}

	jobs := make(chan job)
	var wg sync.WaitGroup

	workers := wp.workers
	if workers > len(paths) {
		workers = len(paths)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = scanner.ScanFile(j.path)
			}
		}()
	}

	cancelled := false
feed:
	for i, path := range paths {
		select {
		case jobs <- job{index: i, path: path}:
		case <-ctx.Done():
			for k := i; k < len(paths); k++ {
				results[k] = core.FileDetections{Path: paths[k], Error: ctx.Err().Error()}
			}
			cancelled = true
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if done != nil {
		done(!cancelled, map[string]interface{}{"files": len(paths), "workers": workers})
	}
	return results
}
