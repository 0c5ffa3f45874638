package store

import (
	"context"
	"sync"
)

// Runner executes a query against a backend.
type Runner func(ctx context.Context, q Query) ([]Document, error)

// ChangeBus carries change notifications between processes sharing a backend.
type ChangeBus interface {
	Publish(ctx context.Context, collections []string) error
}

// ChangeFeed is the in-process subscription registry. Backends call Changed
// after every commit; each subscription re-runs its query and delivers a full
// snapshot. Deliveries for one subscription are sequential and coalesced, so a
// subscriber never sees an older snapshot after a newer one.
type ChangeFeed struct {
	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
}

type subscription struct {
	feed  *ChangeFeed
	query Query
	run   Runner
	fn    func([]Document)
	wake  chan struct{}
	done  chan struct{}
}

func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{subs: make(map[string]map[*subscription]struct{})}
}

// Watch registers fn for q. The first snapshot is delivered asynchronously.
func (f *ChangeFeed) Watch(ctx context.Context, q Query, run Runner, fn func([]Document)) (Unsubscribe, error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &subscription{
		feed:  f,
		query: q,
		run:   run,
		fn:    fn,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	f.mu.Lock()
	set, ok := f.subs[q.Collection]
	if !ok {
		set = make(map[*subscription]struct{})
		f.subs[q.Collection] = set
	}
	set[s] = struct{}{}
	f.mu.Unlock()

	s.wake <- struct{}{}
	go s.loop(ctx)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-s.done
		})
	}, nil
}

// Changed wakes every subscription on the given collections.
func (f *ChangeFeed) Changed(collections ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range collections {
		for s := range f.subs[c] {
			select {
			case s.wake <- struct{}{}:
			default:
			}
		}
	}
}

// Len returns the number of live subscriptions.
func (f *ChangeFeed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, set := range f.subs {
		n += len(set)
	}
	return n
}

func (f *ChangeFeed) remove(s *subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.subs[s.query.Collection]
	delete(set, s)
	if len(set) == 0 {
		delete(f.subs, s.query.Collection)
	}
}

func (s *subscription) loop(ctx context.Context) {
	defer close(s.done)
	defer s.feed.remove(s)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}
		docs, err := s.run(ctx, s.query)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			// the next change retries
			continue
		}
		s.fn(docs)
	}
}

// Collections returns the distinct parent collections of staged writes.
func Collections(staged []Staged) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range staged {
		c := CollectionOf(s.Path)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
