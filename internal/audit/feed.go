package audit

import "sync"

// Feed fans recorded entries out to live subscribers. Publish never blocks;
// a subscriber whose buffer is full misses entries.
type Feed struct {
	mu   sync.Mutex
	subs map[chan Entry]struct{}
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[chan Entry]struct{})}
}

// Subscribe returns a channel of new entries and a function that ends the
// subscription and closes the channel.
func (f *Feed) Subscribe(buffer int) (<-chan Entry, func()) {
	ch := make(chan Entry, buffer)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
			close(ch)
		})
	}
}

func (f *Feed) Publish(e Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
