// Package broadcast fans newly created articles out to live subscribers.
package broadcast

import (
	"sync"

	"github.com/cryptomonitor/internal/models"
	"github.com/rs/zerolog"
)

// Subscription is one subscriber's delivery queue
type Subscription struct {
	// C receives articles published after Subscribe returned
	C <-chan *models.Article

	ch      chan *models.Article
	b       *Broadcaster
	once    sync.Once
	mu      sync.Mutex
	closed  bool
	dropped int
}

// Dropped returns how many articles were not delivered because the queue was full
func (s *Subscription) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close unregisters the subscription and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.b.remove(s)
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

func (s *Subscription) deliver(article *models.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- article:
	default:
		s.dropped++
	}
}

// Broadcaster is an in-memory publish/subscribe hub. Delivery is best-effort:
// a full queue drops the event for that subscriber only and Publish never blocks.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	log    zerolog.Logger
	// OnChange, when set, is called with the subscriber count after it changes
	OnChange func(n int)
}

// New creates a Broadcaster whose subscriber queues hold buffer articles
func New(buffer int, log zerolog.Logger) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	return &Broadcaster{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		log:    log.With().Str("component", "broadcaster").Logger(),
	}
}

// Subscribe registers a new queue
func (b *Broadcaster) Subscribe() *Subscription {
	ch := make(chan *models.Article, b.buffer)
	sub := &Subscription{C: ch, ch: ch, b: b}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()

	b.changed(n)
	return sub
}

// Publish delivers article to every registered subscriber
func (b *Broadcaster) Publish(article *models.Article) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		sub.deliver(article)
	}
	b.log.Debug().Str("article_id", article.ID).Int("subscribers", len(b.subs)).Msg("Published article")
}

// Count returns the number of registered subscribers
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broadcaster) remove(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	n := len(b.subs)
	b.mu.Unlock()

	b.changed(n)
}

func (b *Broadcaster) changed(n int) {
	if b.OnChange != nil {
		b.OnChange(n)
	}
}
