package common

import (
	"runtime"
	"sync"
)

// ParallelRows runs fn(y) for every row y in [0, height) using up to GOMAXPROCS workers.
// Rows are striped across workers so that expensive regions of an image do not pile up
// on a single goroutine.
func ParallelRows(height int, fn func(y int)) {
	if height <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > height {
		workers = height
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(offset int) {
			defer wg.Done()
			for y := offset; y < height; y += workers {
				fn(y)
			}
		}(w)
	}
	wg.Wait()
}
