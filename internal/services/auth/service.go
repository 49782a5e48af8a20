package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/curzel-it/battld/internal/dependencies/clock"
	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNameTaken          = errors.New("name already taken")
	ErrInvalidName        = errors.New("name must be 1 to 32 characters")
	ErrWeakSecret         = errors.New("secret must be at least 6 characters")
)

const (
	maxNameLength   = 32
	minSecretLength = 6
)

// Session is an issued token and the player it belongs to
type Session struct {
	Token     string
	PlayerID  model.PlayerID
	Player    model.Player
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Service handles registration, login and token verification
type Service struct {
	storage storage.Storage
	clock   clock.Clock

	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int
}

// Config holds configuration for the auth service
type Config struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		TokenTTL:   24 * time.Hour,
		BcryptCost: bcrypt.DefaultCost,
	}
}

// New creates a new AuthService
func New(storage storage.Storage, clock clock.Clock, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaults.BcryptCost
	}
	return &Service{
		storage:    storage,
		clock:      clock,
		secret:     []byte(cfg.Secret),
		tokenTTL:   cfg.TokenTTL,
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates a player account and issues its first token
func (s *Service) Register(ctx context.Context, name, secret string) (*Session, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, ErrInvalidName
	}
	if len(secret) < minSecretLength {
		return nil, ErrWeakSecret
	}

	// Check if name exists
	_, err := s.storage.GetPlayerByName(ctx, name)
	if err == nil {
		return nil, ErrNameTaken
	}
	if !errors.Is(err, model.ErrPlayerNotFound) {
		return nil, err
	}

	// Hash secret
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	player := &model.Player{
		ID:         model.PlayerID("p_" + strings.ReplaceAll(uuid.NewString(), "-", "")),
		Name:       name,
		SecretHash: string(hash),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	return s.IssueToken(player)
}

// Login checks a player's secret and issues a token
func (s *Service) Login(ctx context.Context, name, secret string) (*Session, error) {
	player, err := s.storage.GetPlayerByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(player.SecretHash), []byte(secret)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.IssueToken(player)
}

// IssueToken signs an HS256 token for the player
func (s *Service) IssueToken(player *model.Player) (*Session, error) {
	now := s.clock.Now()
	expires := now.Add(s.tokenTTL)

	claims := jwt.MapClaims{
		"sub":  string(player.ID),
		"name": player.Name,
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  expires.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return &Session{
		Token:     signed,
		PlayerID:  player.ID,
		Player:    *player,
		IssuedAt:  now,
		ExpiresAt: expires,
	}, nil
}

// Authenticate verifies a token and returns the player it was issued to
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Player, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return nil, ErrInvalidToken
	}

	player, err := s.storage.GetPlayer(ctx, model.PlayerID(subject))
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return player, nil
}
