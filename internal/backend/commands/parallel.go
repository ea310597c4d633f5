package commands

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// parallelFor runs fn(i) over i in [0, n) using up to GOMAXPROCS workers.
// Work is distributed by striding to balance uneven workloads.
func parallelFor(n int, fn func(i int)) {
	_ = parallelForStop(n, func(i int) bool {
		fn(i)
		return false
	})
}

// parallelForStop runs fn(i) over i in [0, n) using up to GOMAXPROCS workers.
// If any fn invocation returns true, all workers stop early and the function returns true.
func parallelForStop(n int, fn func(i int) bool) bool {
	if n <= 0 {
		return false
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}

	var stop atomic.Bool
	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := w; i < n && !stop.Load(); i += workers {
				if fn(i) {
					stop.Store(true)
					return
				}
			}
		}()
	}

	wg.Wait()
	return stop.Load()
}
