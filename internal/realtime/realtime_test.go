package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/repository/docstore"
	"github.com/vedran77/hive/internal/store"
	"github.com/vedran77/hive/internal/store/memory"
)

var (
	general = addressing.ChannelThread("c1", "general")
	random  = addressing.ChannelThread("c1", "random")
)

type snapshots struct {
	mu   sync.Mutex
	got  []Snapshot
	wake chan struct{}
}

func newSnapshots() *snapshots {
	return &snapshots{wake: make(chan struct{}, 64)}
}

func (s *snapshots) add(snap Snapshot) {
	s.mu.Lock()
	s.got = append(s.got, snap)
	s.mu.Unlock()
	s.wake <- struct{}{}
}

// waitFor blocks until a snapshot satisfying ok arrives.
func (s *snapshots) waitFor(t *testing.T, ok func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		s.mu.Lock()
		for i := len(s.got) - 1; i >= 0; i-- {
			if ok(s.got[i]) {
				snap := s.got[i]
				s.mu.Unlock()
				return snap
			}
		}
		s.mu.Unlock()
		select {
		case <-s.wake:
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func send(t *testing.T, repos *docstore.Repos, thread addressing.Thread, id, text string) {
	t.Helper()
	msg := &domain.Message{ID: id, SenderID: "u1", Type: domain.MessageText, Text: text, Timestamp: domain.Now()}
	require.NoError(t, repos.Messages.Create(context.Background(), thread, msg))
}

func TestWatcherRendersForViewer(t *testing.T) {
	mem := memory.New()
	repos := docstore.New(mem)
	ctx := context.Background()
	require.NoError(t, repos.Settings.SaveRestrictedWords(ctx, "viewer", &domain.RestrictedWords{
		Words: []domain.RestrictedWord{{Word: "darn", Replacement: "*"}},
	}))

	snaps := newSnapshots()
	stop, err := NewWatcher(repos.Messages, repos.Settings).Watch(ctx, "viewer", general, snaps.add)
	require.NoError(t, err)
	defer stop()

	send(t, repos, general, "m1", "darn it")
	snap := snaps.waitFor(t, func(s Snapshot) bool { return len(s.Messages) == 1 })
	assert.Equal(t, general, snap.Thread)
	assert.Equal(t, "**** it", snap.Messages[0].Text)
	assert.True(t, snap.Messages[0].ShowHeader)
	assert.NotNil(t, snap.Messages[0].Reactions)
}

func TestSessionSwitchStopsPreviousThread(t *testing.T) {
	mem := memory.New()
	repos := docstore.New(mem)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snaps := newSnapshots()
	session := NewSession(ctx, NewWatcher(repos.Messages, repos.Settings).Starter("viewer", snaps.add))

	require.NoError(t, session.Switch(general))
	send(t, repos, general, "g1", "in general")
	snaps.waitFor(t, func(s Snapshot) bool { return s.Thread == general && len(s.Messages) == 1 })

	require.NoError(t, session.Switch(random))
	assert.Equal(t, 1, mem.Subscribers(), "the old subscription is gone before the new one starts")
	current, ok := session.Current()
	require.True(t, ok)
	assert.Equal(t, random, current)

	snaps.waitFor(t, func(s Snapshot) bool { return s.Thread == random })
	send(t, repos, general, "g2", "nobody is watching")
	send(t, repos, random, "r1", "in random")
	snaps.waitFor(t, func(s Snapshot) bool { return s.Thread == random && len(s.Messages) == 1 })

	// every snapshot after the switch belongs to random
	snaps.mu.Lock()
	seenRandom := false
	for _, s := range snaps.got {
		if s.Thread == random {
			seenRandom = true
			continue
		}
		assert.False(t, seenRandom, "general snapshot delivered after switching")
	}
	snaps.mu.Unlock()

	session.Close()
	assert.Zero(t, mem.Subscribers())
	assert.Error(t, session.Switch(general))
}

func TestSessionKeepsNothingOnFailedStart(t *testing.T) {
	stops := 0
	start := func(_ context.Context, thread addressing.Thread) (store.Unsubscribe, error) {
		if thread == random {
			return nil, errors.New("denied")
		}
		return func() { stops++ }, nil
	}
	session := NewSession(context.Background(), start)

	require.NoError(t, session.Switch(general))
	assert.Error(t, session.Switch(random))
	assert.Equal(t, 1, stops)
	_, ok := session.Current()
	assert.False(t, ok)

	session.Leave()
	assert.Equal(t, 1, stops)
}
