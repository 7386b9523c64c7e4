package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	var last string
	done := make(chan struct{}, 1)

	d := New(30*time.Millisecond, func(v string) {
		atomic.AddInt32(&calls, 1)
		mu.Lock()
		last = v
		mu.Unlock()
		done <- struct{}{}
	})

	for _, v := range []string{"j", "ju", "jua", "juan"} {
		d.Trigger(v)
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced call never fired")
	}
	time.Sleep(60 * time.Millisecond)

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected 1 call, got %d", n)
	}
	mu.Lock()
	defer mu.Unlock()
	if last != "juan" {
		t.Fatalf("expected last value to win, got %q", last)
	}
}

func TestDebouncer_Flush(t *testing.T) {
	var got int32
	d := New(time.Hour, func(v int32) { atomic.StoreInt32(&got, v) })

	if d.Flush() {
		t.Fatal("Flush() with nothing pending should return false")
	}
	d.Trigger(7)
	if !d.Flush() {
		t.Fatal("Flush() should run the pending call")
	}
	if atomic.LoadInt32(&got) != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}

func TestDebouncer_StopDropsPending(t *testing.T) {
	var calls int32
	d := New(10*time.Millisecond, func(struct{}) { atomic.AddInt32(&calls, 1) })
	d.Trigger(struct{}{})
	d.Stop()
	d.Trigger(struct{}{})
	time.Sleep(40 * time.Millisecond)
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("expected no calls after Stop, got %d", n)
	}
}
