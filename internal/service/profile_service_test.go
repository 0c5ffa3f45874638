package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/media"
)

func TestProfilePrivacy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	u, err := f.repos.Users.GetByID(ctx, alice.UID)
	require.NoError(t, err)
	u.Email = "alice@example.com"
	require.NoError(t, f.repos.Users.Save(ctx, u))

	bio := "  gopher  "
	hobbies := []string{"chess", "", "chess", "go"}
	_, err = f.profiles.UpdateProfile(ctx, alice.UID, UpdateProfileInput{
		Bio:     &bio,
		Hobbies: &hobbies,
		Privacy: &domain.Privacy{ShowHobbies: true},
	})
	require.NoError(t, err)

	own, err := f.profiles.GetProfile(ctx, alice.UID, alice.UID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", own.User.Email)
	assert.Equal(t, "gopher", own.Profile.Bio)
	assert.Equal(t, []string{"chess", "go"}, own.Profile.Hobbies)

	seen, err := f.profiles.GetProfile(ctx, bob.UID, alice.UID)
	require.NoError(t, err)
	assert.Empty(t, seen.User.Email)
	assert.Equal(t, []string{"chess", "go"}, seen.Profile.Hobbies)

	_, err = f.profiles.GetProfile(ctx, bob.UID, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateDisplayName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	name := "Alice L."

	view, err := f.profiles.UpdateProfile(ctx, alice.UID, UpdateProfileInput{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alice L.", view.User.DisplayName)
}

func TestMuteSettingsDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	m, err := f.profiles.GetMuteSettings(ctx, alice.UID)
	require.NoError(t, err)
	assert.NotNil(t, m.MutedUsers)
	assert.Empty(t, m.MutedUsers)

	_, err = f.profiles.UpdateMuteSettings(ctx, alice.UID, domain.MuteSettings{MutedCommunities: []string{"c1", "c1"}, AllowMentionsWhenMuted: true})
	require.NoError(t, err)
	m, err = f.profiles.GetMuteSettings(ctx, alice.UID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, m.MutedCommunities)
	assert.True(t, m.AllowMentionsWhenMuted)
}

func TestRestrictedWords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	words, err := f.profiles.ListRestrictedWords(ctx, alice.UID)
	require.NoError(t, err)
	assert.Empty(t, words)

	saved, err := f.profiles.SetRestrictedWords(ctx, alice.UID, []domain.RestrictedWord{
		{Word: " darn "},
		{Word: "  ", Replacement: "x"},
		{Word: "heck", Replacement: "h*ck"},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.RestrictedWord{{Word: "darn", Replacement: "*"}, {Word: "heck", Replacement: "h*ck"}}, saved)

	words, err = f.profiles.ListRestrictedWords(ctx, alice.UID)
	require.NoError(t, err)
	assert.Equal(t, saved, words)
}

func TestUploadAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	u, err := f.profiles.UploadAvatar(ctx, alice.UID, media.File{
		Name: "me.png", ContentType: "image/png", Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://media.test/avatars/"+alice.UID+"/me.png", u.AvatarURL)

	_, err = f.profiles.UploadAvatar(ctx, alice.UID, media.File{
		Name: "notes.txt", ContentType: "text/plain", Size: 5, Body: bytes.NewReader([]byte("hello")),
	})
	assert.Error(t, err)
}
