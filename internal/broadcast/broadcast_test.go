package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/cryptomonitor/internal/models"
	"github.com/rs/zerolog"
)

func receive(t *testing.T, sub *Subscription) *models.Article {
	t.Helper()
	select {
	case a := <-sub.C:
		return a
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for article")
		return nil
	}
}

func expectEmpty(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case a, ok := <-sub.C:
		if ok {
			t.Errorf("Expected no article, got %s", a.ID)
		}
	default:
	}
}

func TestBroadcaster_SubscribeBeforeAndAfterPublish(t *testing.T) {
	b := New(8, zerolog.Nop())

	early := b.Subscribe()
	defer early.Close()

	b.Publish(&models.Article{ID: "a"})

	late := b.Subscribe()
	defer late.Close()

	if got := receive(t, early); got.ID != "a" {
		t.Errorf("Expected article a, got %s", got.ID)
	}
	expectEmpty(t, early)
	expectEmpty(t, late)
}

func TestBroadcaster_FanOutPreservesOrder(t *testing.T) {
	b := New(8, zerolog.Nop())
	subs := []*Subscription{b.Subscribe(), b.Subscribe(), b.Subscribe()}

	b.Publish(&models.Article{ID: "1"})
	b.Publish(&models.Article{ID: "2"})

	for i, sub := range subs {
		if got := receive(t, sub).ID; got != "1" {
			t.Errorf("Subscriber %d: expected 1 first, got %s", i, got)
		}
		if got := receive(t, sub).ID; got != "2" {
			t.Errorf("Subscriber %d: expected 2 second, got %s", i, got)
		}
		sub.Close()
	}
}

func TestBroadcaster_FullQueueDoesNotBlock(t *testing.T) {
	b := New(1, zerolog.Nop())
	slow := b.Subscribe()
	defer slow.Close()
	fast := b.Subscribe()
	defer fast.Close()

	b.Publish(&models.Article{ID: "1"})
	if got := receive(t, fast).ID; got != "1" {
		t.Fatalf("Expected 1, got %s", got)
	}

	done := make(chan struct{})
	go func() {
		b.Publish(&models.Article{ID: "2"})
		b.Publish(&models.Article{ID: "3"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}

	if got := receive(t, slow).ID; got != "1" {
		t.Errorf("Expected the slow subscriber to keep the first article, got %s", got)
	}
	if slow.Dropped() != 2 {
		t.Errorf("Expected 2 dropped articles, got %d", slow.Dropped())
	}
}

func TestBroadcaster_CloseUnsubscribes(t *testing.T) {
	b := New(4, zerolog.Nop())

	var mu sync.Mutex
	var counts []int
	b.OnChange = func(n int) {
		mu.Lock()
		counts = append(counts, n)
		mu.Unlock()
	}

	sub := b.Subscribe()
	if b.Count() != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", b.Count())
	}

	sub.Close()
	sub.Close()
	if b.Count() != 0 {
		t.Errorf("Expected 0 subscribers, got %d", b.Count())
	}

	// Publishing after close must not panic on the closed channel
	b.Publish(&models.Article{ID: "x"})

	if _, ok := <-sub.C; ok {
		t.Error("Expected closed channel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(counts) != 2 || counts[0] != 1 || counts[1] != 0 {
		t.Errorf("Unexpected OnChange calls: %v", counts)
	}
}

func TestBroadcaster_ConcurrentPublish(t *testing.T) {
	b := New(100, zerolog.Nop())
	sub := b.Subscribe()
	defer sub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Publish(&models.Article{ID: "c"})
		}()
	}
	wg.Wait()

	if len(sub.C) != 50 {
		t.Errorf("Expected 50 queued articles, got %d", len(sub.C))
	}
}

// BenchmarkPublishParallel publishes from many goroutines to 32 draining subscribers
func BenchmarkPublishParallel(b *testing.B) {
	bc := New(1024, zerolog.Nop())
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		sub := bc.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sub.Close()
			for {
				select {
				case <-sub.C:
				case <-done:
					return
				}
			}
		}()
	}
	article := &models.Article{ID: "bench"}

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			bc.Publish(article)
		}
	})

	b.StopTimer()
	close(done)
	wg.Wait()
}
