package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/identity"
	"github.com/vedran77/hive/internal/repository"
)

var (
	ErrEmailTaken   = errors.New("email already taken")
	ErrInvalidCreds = errors.New("invalid email or password")
)

// AuthService is the local identity provider: it owns credentials and the
// users/{uid} identity projection, and issues tokens.
type AuthService struct {
	userRepo repository.UserRepository
	tokens   *identity.JWTProvider
}

func NewAuthService(userRepo repository.UserRepository, tokens *identity.JWTProvider) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

type RegisterInput struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := domain.Now()
	email := strings.TrimSpace(input.Email)
	user := &domain.User{
		ID:          uuid.NewString(),
		DisplayName: strings.TrimSpace(input.DisplayName),
		Email:       email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// credentials/{email} is created first so a lost race leaves no orphaned user
	creds := &domain.Credentials{
		UserID:       user.ID,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := s.userRepo.CreateCredentials(ctx, creds); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating credentials: %w", err)
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return s.respond(user)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	creds, err := s.userRepo.GetCredentials(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, ErrInvalidCreds
	}

	if !verifyPassword(input.Password, creds.PasswordHash) {
		return nil, ErrInvalidCreds
	}

	user, err := s.userRepo.GetByID(ctx, creds.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCreds
	}

	return s.respond(user)
}

func (s *AuthService) respond(user *domain.User) (*AuthResponse, error) {
	token, err := s.tokens.Issue(identity.Identity{
		UID:         user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		PhotoURL:    user.AvatarURL,
	})
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}
	return &AuthResponse{User: user, AccessToken: token}, nil
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)

	return fmt.Sprintf("%s:%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func verifyPassword(password, encoded string) bool {
	saltB64, hashB64, ok := strings.Cut(encoded, ":")
	if !ok {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(hashB64)
	if err != nil {
		return false
	}

	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return subtle.ConstantTimeCompare(hash, expectedHash) == 1
}
