package dynamo

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// Workers is the number of goroutines ParallelFor splits work across.
var Workers = runtime.GOMAXPROCS(0)

// ParallelFor executes a function in parallel over a range [0, n)
func ParallelFor(n, minChunk int, fn func(start, end int)) {
	numWorkers := Workers
	if n <= minChunk || numWorkers <= 1 {
		fn(0, n)
		return
	}

	workers := numWorkers
	if minChunk > 0 && n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// ParallelForErr runs fn for every index in [0, n) and joins the failures.
// A panic inside fn is converted into an error for that index so one bad
// item never takes the batch down with it.
func ParallelForErr(n, minChunk int, fn func(i int) error) error {
	errs := make([]error, n)

	ParallelFor(n, minChunk, func(start, end int) {
		for i := start; i < end; i++ {
			errs[i] = guard(i, fn)
		}
	})

	return errors.Join(errs...)
}

func guard(i int, fn func(i int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic at index %d: %v", i, r)
		}
	}()
	return fn(i)
}
