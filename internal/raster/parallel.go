package raster

import (
	"runtime"
	"sync"
)

// minChunk keeps tiny images on the calling goroutine.
const minChunk = 4096

// ParallelFor splits the flattened index range [0,n) into contiguous chunks
// and runs body on each chunk from a fixed pool of goroutines. It returns
// only after every chunk has finished, so consecutive calls form a barrier.
// body must only write to indices inside its own chunk.
func ParallelFor(n int, body func(start, end int)) {
	if n <= 0 {
		return
	}

	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	if maxWorkers := (n + minChunk - 1) / minChunk; workers > maxWorkers {
		workers = maxWorkers
	}
	if workers == 1 {
		body(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			body(start, end)
		}(start, end)
	}
	wg.Wait()
}
