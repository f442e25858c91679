package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool_Workers(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		in, want int
	}{
		{5, 5},
		{0, 1},
		{-3, 1},
	}
	for _, tt := range tests {
		if got := NewPool[int](ctx, tt.in).Workers(); got != tt.want {
			t.Errorf("NewPool(%d).Workers() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPool_ResultsKeepSubmissionOrder(t *testing.T) {
	pool := NewPool[int](context.Background(), 4)

	const count = 12
	for i := 0; i < count; i++ {
		// Earlier tasks sleep longer and finish last
		delay := time.Duration(count-i) * time.Millisecond
		pool.Go(func(ctx context.Context) int {
			time.Sleep(delay)
			return i
		})
	}

	results := pool.Wait()
	if len(results) != count {
		t.Fatalf("expected %d results, got %d", count, len(results))
	}
	for i, got := range results {
		if got != i {
			t.Errorf("results[%d] = %d", i, got)
		}
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 3
	pool := NewPool[struct{}](context.Background(), workers)

	var current, peak int32
	for i := 0; i < 30; i++ {
		pool.Go(func(ctx context.Context) struct{} {
			n := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return struct{}{}
		})
	}
	pool.Wait()

	if p := atomic.LoadInt32(&peak); p > workers || p == 0 {
		t.Errorf("peak concurrency %d, want 1..%d", p, workers)
	}
}

func TestPool_EmptyWait(t *testing.T) {
	results := NewPool[string](context.Background(), 2).Wait()
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %#v", results)
	}
}

func TestPool_ManyTasksDoNotDeadlock(t *testing.T) {
	pool := NewPool[int](context.Background(), 2)

	done := make(chan []int)
	go func() {
		for i := 0; i < 200; i++ {
			pool.Go(func(ctx context.Context) int { return i })
		}
		done <- pool.Wait()
	}()

	select {
	case results := <-done:
		if len(results) != 200 || results[199] != 199 {
			t.Errorf("unexpected results: len=%d", len(results))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pool deadlocked")
	}
}

func TestPool_ParentCancelReachesTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool[error](ctx, 1)

	started := make(chan struct{})
	pool.Go(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started
	cancel()

	results := pool.Wait()
	if len(results) != 1 || results[0] != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", results)
	}
}

func TestPool_Shutdown(t *testing.T) {
	pool := NewPool[error](context.Background(), 2)

	started := make(chan struct{})
	pool.Go(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not stop the running task")
	}
}
