package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/hive/internal/identity"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.auth.Register(ctx, RegisterInput{Email: "Ana@Example.com", DisplayName: " ana ", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.AccessToken)
	assert.Equal(t, "ana", reg.User.DisplayName)

	tokens := identity.NewJWTProvider("test-secret", time.Hour)
	id, err := tokens.Verify(ctx, reg.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, id.UID)
	assert.Equal(t, "ana", id.DisplayName)

	login, err := f.auth.Login(ctx, LoginInput{Email: "ana@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	stored, err := f.repos.Users.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, RegisterInput{Email: "ana@example.com", DisplayName: "ana", Password: "password1"})
	require.NoError(t, err)
	_, err = f.auth.Register(ctx, RegisterInput{Email: "ANA@example.com", DisplayName: "other", Password: "password2"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, RegisterInput{Email: "ana@example.com", DisplayName: "ana", Password: "password1"})
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, LoginInput{Email: "ana@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCreds)
	_, err = f.auth.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, verifyPassword("s3cret", hash))
	assert.False(t, verifyPassword("s3cret!", hash))
	assert.False(t, verifyPassword("s3cret", "garbage"))

	again, err := hashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salts differ")
}
