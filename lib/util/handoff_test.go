package util

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestHandoffOrder tests that values are delivered in push order
func TestHandoffOrder(t *testing.T) {
	q := NewHandoff[int]()
	defer q.Close()

	for i := 0; i < 10; i++ {
		v := i
		if !q.Push(&v) {
			t.Fatalf("Failed to push item %d", i)
		}
	}

	for i := 0; i < 10; i++ {
		select {
		case val := <-q.Recv():
			if *val != i {
				t.Errorf("Expected %d, got %d", i, *val)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timeout waiting for item %d", i)
		}
	}

	select {
	case val := <-q.Recv():
		t.Errorf("Queue should be empty, but got %v", *val)
	case <-time.After(10 * time.Millisecond):
		// expected, queue is empty
	}
}

// TestHandoffPushNeverBlocks pushes far more values than any channel buffer
// could hold while nobody is receiving
func TestHandoffPushNeverBlocks(t *testing.T) {
	q := NewHandoff[int]()
	defer q.Close()

	const n = 100_000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			v := i
			q.Push(&v)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Push blocked without a consumer")
	}

	for i := 0; i < n; i++ {
		if v := <-q.Recv(); *v != i {
			t.Fatalf("Expected %d, got %d", i, *v)
		}
	}
}

// TestHandoffCloseDrains verifies that values pushed before Close are still delivered
func TestHandoffCloseDrains(t *testing.T) {
	q := NewHandoff[string]()

	for _, s := range []string{"a", "b", "c"} {
		v := s
		q.Push(&v)
	}
	q.Close()

	if q.Push(new(string)) {
		t.Errorf("Push after Close must fail")
	}

	var got []string
	for v := range q.Recv() {
		got = append(got, *v)
	}
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("Expected [a b c], got %v", got)
	}
}

func TestHandoffRejectsNil(t *testing.T) {
	q := NewHandoff[int]()
	defer q.Close()

	if q.Push(nil) {
		t.Errorf("Push(nil) must fail")
	}
}

// TestHandoffConcurrentProducers verifies that no value is lost or duplicated
func TestHandoffConcurrentProducers(t *testing.T) {
	q := NewHandoff[int]()

	const producers = 8
	const perProducer = 1000

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				v := base + i
				q.Push(&v)
			}
		}(p * perProducer)
	}

	go func() {
		wg.Wait()
		q.Close()
	}()

	seen := make(map[int]bool)
	for v := range q.Recv() {
		if seen[*v] {
			t.Errorf("Duplicate item received: %d", *v)
		}
		seen[*v] = true
	}

	if len(seen) != producers*perProducer {
		t.Errorf("Expected %d items, got %d", producers*perProducer, len(seen))
	}
}

// TestHandoffCloseDuringPush verifies that every accepted push is delivered
// even if Close runs concurrently
func TestHandoffCloseDuringPush(t *testing.T) {
	for round := 0; round < 50; round++ {
		q := NewHandoff[int]()

		const producers = 4
		var accepted atomic.Int64
		var wg sync.WaitGroup
		wg.Add(producers)
		for p := 0; p < producers; p++ {
			go func() {
				defer wg.Done()
				for i := 0; i < 1000; i++ {
					v := i
					if !q.Push(&v) {
						return
					}
					accepted.Add(1)
				}
			}()
		}

		time.Sleep(time.Duration(round%5) * 100 * time.Microsecond)
		q.Close()

		received := int64(0)
		for range q.Recv() {
			received++
		}
		wg.Wait()

		if received != accepted.Load() {
			t.Fatalf("Round %d: %d pushes accepted but %d values received", round, accepted.Load(), received)
		}
	}
}
