package realtime

import (
	"context"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/projection"
	"github.com/vedran77/hive/internal/repository"
	"github.com/vedran77/hive/internal/store"
)

// SnapshotLimit caps how many of the newest messages a snapshot carries.
const SnapshotLimit = 100

// Snapshot is a thread rendered for one viewer.
type Snapshot struct {
	Thread   addressing.Thread           `json:"thread"`
	Messages []projection.DisplayMessage `json:"messages"`
	HasMore  bool                        `json:"has_more"`
}

// Watcher renders live thread snapshots for a viewer.
type Watcher struct {
	messages repository.MessageRepository
	settings repository.SettingsRepository
}

func NewWatcher(messages repository.MessageRepository, settings repository.SettingsRepository) *Watcher {
	return &Watcher{messages: messages, settings: settings}
}

// Watch calls fn with a fresh snapshot after every change to thread. The
// viewer's restricted words are read once when the subscription starts.
func (w *Watcher) Watch(ctx context.Context, viewerID string, thread addressing.Thread, fn func(Snapshot)) (store.Unsubscribe, error) {
	var words []domain.RestrictedWord
	rw, err := w.settings.GetRestrictedWords(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if rw != nil {
		words = rw.Words
	}

	return w.messages.Watch(ctx, thread, func(msgs []domain.Message) {
		snap := Snapshot{Thread: thread}
		if len(msgs) > SnapshotLimit {
			projection.SortByTimestamp(msgs)
			msgs = msgs[len(msgs)-SnapshotLimit:]
			snap.HasMore = true
		}
		snap.Messages = projection.Project(msgs, words)
		fn(snap)
	})
}

// Starter adapts Watch to a Session for viewerID.
func (w *Watcher) Starter(viewerID string, fn func(Snapshot)) StartFunc {
	return func(ctx context.Context, thread addressing.Thread) (store.Unsubscribe, error) {
		return w.Watch(ctx, viewerID, thread, fn)
	}
}
