package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerHaltStopsGoroutine(t *testing.T) {
	w := New()
	stopped := make(chan struct{})

	w.Go(func() {
		<-w.HaltCh()
		close(stopped)
	})

	w.Halt()
	w.Wait()

	select {
	case <-stopped:
	default:
		t.Fatal("goroutine did not observe halt")
	}
}

func TestWorkerHaltIsIdempotent(t *testing.T) {
	w := New()
	assert.NotPanics(t, func() {
		w.Halt()
		w.Halt()
	})
}

func TestWorkerWaitBlocksUntilAllDone(t *testing.T) {
	w := New()
	const n = 5
	done := make(chan int, n)

	for i := 0; i < n; i++ {
		i := i
		w.Go(func() {
			<-w.HaltCh()
			done <- i
		})
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		w.Halt()
	}()

	w.Wait()
	close(done)
	count := 0
	for range done {
		count++
	}
	assert.Equal(t, n, count)
}
