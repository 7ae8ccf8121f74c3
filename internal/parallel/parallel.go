// Package parallel provides the worker-chunk parallel-for primitive used
// to fan batched kernel work across CPUs.
package parallel

import (
	"runtime"
	"sync"
)

// Ranges partitions [begin, end) into contiguous chunks of at least
// grain indices each, never more chunks than CPUs. The partition is a
// pure function of its arguments and the CPU count, so chunk boundaries
// are stable for a given machine regardless of scheduling.
func Ranges(begin, end, grain int) [][2]int {
	n := end - begin
	if n <= 0 {
		return nil
	}
	if grain < 1 {
		grain = 1
	}

	chunkSize := (n + runtime.NumCPU() - 1) / runtime.NumCPU()
	if chunkSize < grain {
		chunkSize = grain
	}

	var ranges [][2]int
	for start := begin; start < end; start += chunkSize {
		stop := start + chunkSize
		if stop > end {
			stop = end
		}
		ranges = append(ranges, [2]int{start, stop})
	}
	return ranges
}

// For executes f over [begin, end) split into chunks per Ranges.
// Chunks run concurrently; indices within a chunk run sequentially in
// order. Falls back to a direct call when only one chunk results.
func For(begin, end, grain int, f func(start, end int)) {
	ForChunk(begin, end, grain, func(_, start, stop int) {
		f(start, stop)
	})
}

// ForChunk is For with the chunk ordinal passed to f, so callers can
// maintain per-chunk accumulators and reduce them in chunk order.
func ForChunk(begin, end, grain int, f func(chunk, start, end int)) {
	ranges := Ranges(begin, end, grain)
	if len(ranges) == 0 {
		return
	}
	if len(ranges) == 1 {
		f(0, ranges[0][0], ranges[0][1])
		return
	}

	var wg sync.WaitGroup
	for i, r := range ranges {
		wg.Add(1)
		go func(chunk, start, stop int) {
			defer wg.Done()
			f(chunk, start, stop)
		}(i, r[0], r[1])
	}
	wg.Wait()
}
