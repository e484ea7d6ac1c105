package util

import (
	"runtime"
	"sync"
	"testing"
	"time"
)

// TestBasicOperations tests basic push and consume functionality
func TestBasicOperations(t *testing.T) {
	q := NewLockFreeMPSC[int]()
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
				t.Errorf("Expected %d, got %v", i, *val)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timeout waiting for item %d", i)
		}
	}

	if q.Push(nil) {
		t.Error("Pushing nil should be rejected")
	}
}

// TestConcurrentProducers verifies the queue works correctly with multiple producers
func TestConcurrentProducers(t *testing.T) {
	q := NewLockFreeMPSC[int]()
	defer q.Close()

	const numProducers = 8
	const itemsPerProducer = 500
	totalItems := numProducers * itemsPerProducer

	done := make(chan map[int]bool)
	go func() {
		received := make(map[int]bool, totalItems)
		for len(received) < totalItems {
			select {
			case val := <-q.Recv():
				if received[*val] {
					t.Errorf("Duplicate item received: %d", *val)
				}
				received[*val] = true
			case <-time.After(5 * time.Second):
				done <- received
				return
			}
		}
		done <- received
	}()

	var wg sync.WaitGroup
	wg.Add(numProducers)
	for p := 0; p < numProducers; p++ {
		go func(producerID int) {
			defer wg.Done()
			for i := 0; i < itemsPerProducer; i++ {
				val := producerID*itemsPerProducer + i
				if !q.Push(&val) {
					t.Errorf("Producer %d failed to push item %d", producerID, i)
				}
				if i%100 == 0 {
					runtime.Gosched()
				}
			}
		}(p)
	}
	wg.Wait()

	if received := <-done; len(received) != totalItems {
		t.Errorf("Expected %d items, got %d", totalItems, len(received))
	}
}

// TestCloseDrains verifies that items pushed before Close are delivered and
// the channel is closed afterward
func TestCloseDrains(t *testing.T) {
	q := NewLockFreeMPSC[int]()

	for i := 0; i < 5; i++ {
		v := i
		q.Push(&v)
	}
	q.Close()

	val := 100
	if q.Push(&val) {
		t.Error("Should not be able to push after queue is closed")
	}

	count := 0
	timeout := time.After(time.Second)
	for {
		select {
		case v, ok := <-q.Recv():
			if !ok {
				if count != 5 {
					t.Errorf("Expected 5 drained items, got %d", count)
				}
				return
			}
			if *v != count {
				t.Errorf("Expected %d, got %d", count, *v)
			}
			count++
		case <-timeout:
			t.Fatalf("Timeout while draining, got %d items", count)
		}
	}
}

// TestCloseIdleConsumer verifies Close wakes a consumer that is waiting for items
func TestCloseIdleConsumer(t *testing.T) {
	for i := 0; i < 100; i++ {
		q := NewLockFreeMPSC[int]()
		runtime.Gosched()
		q.Close()

		select {
		case _, ok := <-q.Recv():
			if ok {
				t.Fatal("Expected closed channel")
			}
		case <-time.After(time.Second):
			t.Fatal("Consumer was not woken up by Close")
		}
	}
}

// TestPushRacingClose verifies that every push accepted while Close runs
// concurrently is still delivered before the channel is closed
func TestPushRacingClose(t *testing.T) {
	const producers = 4

	for round := 0; round < 50; round++ {
		q := NewLockFreeMPSC[int]()

		received := make(chan int)
		go func() {
			n := 0
			for range q.Recv() {
				n++
			}
			received <- n
		}()

		var accepted sync.WaitGroup
		counts := make([]int, producers)
		accepted.Add(producers)
		for p := 0; p < producers; p++ {
			go func(p int) {
				defer accepted.Done()
				for i := 0; ; i++ {
					v := i
					if !q.Push(&v) {
						return
					}
					counts[p]++
				}
			}(p)
		}

		time.Sleep(time.Millisecond)
		q.Close()
		accepted.Wait()

		total := 0
		for _, c := range counts {
			total += c
		}

		select {
		case n := <-received:
			if n != total {
				t.Fatalf("Round %d: %d pushes were accepted but %d items were delivered", round, total, n)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("Round %d: timeout while draining", round)
		}
	}
}

// TestWakeSleepingConsumer verifies a consumer that went idle is woken by a later push
func TestWakeSleepingConsumer(t *testing.T) {
	q := NewLockFreeMPSC[int]()
	defer q.Close()

	for i := 0; i < 20; i++ {
		// give the consumer time to go to sleep
		time.Sleep(time.Millisecond)

		v := i
		q.Push(&v)
		select {
		case got := <-q.Recv():
			if *got != i {
				t.Errorf("Expected %d, got %d", i, *got)
			}
		case <-time.After(time.Second):
			t.Fatalf("Consumer was not woken up for item %d", i)
		}
	}
}

func BenchmarkMultiProducer(b *testing.B) {
	q := NewLockFreeMPSC[int]()
	defer q.Close()

	go func() {
		for range q.Recv() {
		}
	}()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			q.Push(&i)
			i++
		}
	})
}
