package parallel

import (
	"sync/atomic"
	"testing"
)

func TestParallelizeCoversAllItems(t *testing.T) {
	const items = 1000
	var hits [items]int32

	Parallelize(items, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})

	for i, h := range hits {
		if h != 1 {
			t.Fatalf("item %d visited %d times, want exactly once", i, h)
		}
	}
}

func TestParallelizeWorkersBounds(t *testing.T) {
	tests := []struct {
		name    string
		items   int
		workers int
	}{
		{name: "more workers than items", items: 3, workers: 16},
		{name: "single worker", items: 50, workers: 1},
		{name: "zero workers falls back", items: 50, workers: 0},
		{name: "no items", items: 0, workers: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var visited int32
			ParallelizeWorkers(tt.items, tt.workers, func(start, end int) {
				atomic.AddInt32(&visited, int32(end-start))
			})
			if int(visited) != tt.items {
				t.Errorf("visited %d items, want %d", visited, tt.items)
			}
		})
	}
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	calls := 0
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		calls++
		if start != 0 || end != 10 {
			t.Errorf("sequential call got range [%d, %d), want [0, 10)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("below threshold should invoke fn once, got %d calls", calls)
	}
}
