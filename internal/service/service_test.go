package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/identity"
	"github.com/vedran77/hive/internal/media"
	"github.com/vedran77/hive/internal/membership"
	"github.com/vedran77/hive/internal/repository/docstore"
	"github.com/vedran77/hive/internal/store"
	"github.com/vedran77/hive/internal/store/memory"
)

const openCommunity = "lounge"

// countingStore counts every write entry point so tests can assert that a
// rejected operation left the store untouched.
type countingStore struct {
	store.Store
	mu     sync.Mutex
	writes int
}

func (c *countingStore) count() {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
}

func (c *countingStore) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func (c *countingStore) Create(ctx context.Context, path string, data any) error {
	c.count()
	return c.Store.Create(ctx, path, data)
}

func (c *countingStore) Set(ctx context.Context, path string, data any, opts ...store.SetOption) error {
	c.count()
	return c.Store.Set(ctx, path, data, opts...)
}

func (c *countingStore) Update(ctx context.Context, path string, fields map[string]any) error {
	c.count()
	return c.Store.Update(ctx, path, fields)
}

func (c *countingStore) Delete(ctx context.Context, path string) error {
	c.count()
	return c.Store.Delete(ctx, path)
}

// RunTransaction counts a transaction only when it committed buffered writes.
func (c *countingStore) RunTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	wrote := false
	err := c.Store.RunTransaction(ctx, func(tx store.Tx) error {
		ct := &countingTx{Tx: tx}
		if err := fn(ct); err != nil {
			return err
		}
		wrote = ct.writes > 0
		return nil
	})
	if err == nil && wrote {
		c.count()
	}
	return err
}

type countingTx struct {
	store.Tx
	writes int
}

func (t *countingTx) Set(path string, data any, opts ...store.SetOption) {
	t.writes++
	t.Tx.Set(path, data, opts...)
}

func (t *countingTx) Update(path string, fields map[string]any) {
	t.writes++
	t.Tx.Update(path, fields)
}

func (t *countingTx) Delete(path string) {
	t.writes++
	t.Tx.Delete(path)
}

func (c *countingStore) Batch(ctx context.Context, ops []store.WriteOp) error {
	c.count()
	return c.Store.Batch(ctx, ops)
}

type fakeMedia struct {
	mu      sync.Mutex
	fail    bool
	uploads []string
}

func (m *fakeMedia) Upload(_ context.Context, f media.File, folder string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return "", errors.New("bucket unavailable")
	}
	url := "https://media.test/" + folder + "/" + f.Name
	m.uploads = append(m.uploads, url)
	return url, nil
}

type fixture struct {
	mem           *memory.Store
	store         *countingStore
	repos         *docstore.Repos
	media         *fakeMedia
	auth          *AuthService
	profiles      *ProfileService
	communities   *CommunityService
	channels      *ChannelService
	messages      *MessageService
	conversations *ConversationService
	notifications *NotificationService
	retention     *RetentionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.New()
	t.Cleanup(func() { mem.Close() })

	cs := &countingStore{Store: mem}
	repos := docstore.New(cs)
	log, _ := test.NewNullLogger()
	rules := membership.Rules{OpenCommunityID: openCommunity}
	fm := &fakeMedia{}

	notifications := NewNotificationService(repos.Activity, repos.Settings, log)
	conversations := NewConversationService(repos.Conversations, repos.Messages, repos.Users, repos.Settings)
	messages := NewMessageService(repos.Messages, repos.Communities, repos.Channels, repos.Users, repos.Settings, conversations, fm, rules, log)
	messages.SetNotifier(notifications)
	communities := NewCommunityService(repos.Communities, repos.Users, rules, fm, log)
	communities.SetNotifier(notifications)

	f := &fixture{
		mem:           mem,
		store:         cs,
		repos:         repos,
		media:         fm,
		auth:          NewAuthService(repos.Users, identity.NewJWTProvider("test-secret", time.Hour)),
		profiles:      NewProfileService(repos.Users, repos.Settings, fm),
		communities:   communities,
		channels:      NewChannelService(repos.Channels, repos.Communities, rules),
		messages:      messages,
		conversations: conversations,
		notifications: notifications,
		retention: NewRetentionService(repos.Channels, repos.Messages, repos.Retention, RetentionOptions{
			CommunityID: openCommunity,
			Horizon:     30 * 24 * time.Hour,
			BatchSize:   2,
		}, log),
	}
	_, err := communities.EnsureOpenCommunity(context.Background(), "system", "Lounge")
	require.NoError(t, err)
	return f
}

// user stores a user document and returns the identity it signs in with.
func (f *fixture) user(t *testing.T, name string) identity.Identity {
	t.Helper()
	u := &domain.User{ID: "id-" + name, DisplayName: name, CreatedAt: domain.Now()}
	require.NoError(t, f.repos.Users.Save(context.Background(), u))
	return identity.Identity{UID: u.ID, DisplayName: u.DisplayName}
}

// community creates a private community owned by owner with the given members.
func (f *fixture) community(t *testing.T, owner identity.Identity, members ...identity.Identity) *domain.Community {
	t.Helper()
	ctx := context.Background()
	c, err := f.communities.Create(ctx, owner.UID, CreateCommunityInput{Name: "Gophers", IsPrivate: true})
	require.NoError(t, err)
	for _, m := range members {
		c, err = f.communities.AddMember(ctx, owner.UID, c.ID, m.UID)
		require.NoError(t, err)
	}
	return c
}
