package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"task-manager/internal/model"
	"task-manager/internal/repository"
)

const tokenName = "auth_token"

// AuthConfig controls token issuance.
type AuthConfig struct {
	Secret     []byte
	TokenTTL   time.Duration // zero means tokens never expire
	BcryptCost int
}

// AuthService registers users and issues, resolves and revokes bearer tokens.
type AuthService struct {
	users  *repository.UserRepository
	tokens *repository.TokenRepository
	cfg    AuthConfig
	now    func() time.Time
}

func NewAuthService(users *repository.UserRepository, tokens *repository.TokenRepository, cfg AuthConfig) *AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{users: users, tokens: tokens, cfg: cfg, now: time.Now}
}

// SetClock replaces the time source.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// Register creates a user and its first token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, string, error) {
	v := validateRegister(in)
	if v.Empty() {
		taken, err := s.users.EmailExists(ctx, in.Email)
		if err != nil {
			return nil, "", err
		}
		if taken {
			v.Add("email", "The email has already been taken.")
		}
	}
	if err := v.Err(); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	row, signed, err := s.newToken()
	if err != nil {
		return nil, "", err
	}

	user := &model.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: string(hash),
	}
	if err := s.users.CreateWithToken(ctx, user, row); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			v.Add("email", "The email has already been taken.")
			return nil, "", v
		}
		return nil, "", err
	}

	log.Printf("[info] user registered id=%d", user.ID)
	return user, signed, nil
}

// Login checks the password and issues a new token. With RevokePrevious set
// every earlier token of the user is revoked first.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*model.User, string, error) {
	if err := validateLogin(in).Err(); err != nil {
		return nil, "", err
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	row, signed, err := s.newToken()
	if err != nil {
		return nil, "", err
	}
	row.UserID = user.ID
	if err := s.tokens.Issue(ctx, row, in.RevokePrevious); err != nil {
		return nil, "", err
	}

	log.Printf("[info] user logged in id=%d revoke_previous=%t", user.ID, in.RevokePrevious)
	return user, signed, nil
}

// Logout revokes exactly the presented token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	_, row, err := s.resolve(ctx, token)
	if err != nil {
		return err
	}
	deleted, err := s.tokens.Delete(ctx, row.TokenID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrUnauthenticated
	}
	return nil
}

// Refresh revokes the presented token and issues a replacement for the same user.
func (s *AuthService) Refresh(ctx context.Context, token string) (string, error) {
	_, current, err := s.resolve(ctx, token)
	if err != nil {
		return "", err
	}

	row, signed, err := s.newToken()
	if err != nil {
		return "", err
	}
	row.UserID = current.UserID
	if err := s.tokens.Rotate(ctx, current.TokenID, row); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUnauthenticated
		}
		return "", err
	}
	return signed, nil
}

// ResolveUser returns the user the token was issued to.
func (s *AuthService) ResolveUser(ctx context.Context, token string) (*model.User, error) {
	user, _, err := s.resolve(ctx, token)
	return user, err
}

// UpdatePreferences merges updates into the user's preferences.
func (s *AuthService) UpdatePreferences(ctx context.Context, user *model.User, updates map[string]any) (*model.User, error) {
	user.MergePreferences(updates)
	if err := s.users.UpdatePreferences(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// PurgeExpiredTokens deletes token rows past their expiry.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, s.now().UTC())
}

func (s *AuthService) resolve(ctx context.Context, token string) (*model.User, *model.AccessToken, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, nil, err
	}

	row, err := s.tokens.FindByTokenID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUnauthenticated
		}
		return nil, nil, fmt.Errorf("find token: %w", err)
	}
	now := s.now().UTC()
	if row.Expired(now) {
		return nil, nil, ErrUnauthenticated
	}

	user, err := s.users.FindByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUnauthenticated
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}

	if err := s.tokens.Touch(ctx, row, now); err != nil {
		log.Printf("[warn] %v", err)
	}
	return user, row, nil
}

func (s *AuthService) parse(token string) (*jwt.RegisteredClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthenticated
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.ID == "" {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// newToken builds an unsaved token row and its signed bearer string.
func (s *AuthService) newToken() (*model.AccessToken, string, error) {
	now := s.now().UTC()
	row := &model.AccessToken{
		TokenID: uuid.NewString(),
		Name:    tokenName,
	}
	claims := jwt.RegisteredClaims{
		ID:       row.TokenID,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if s.cfg.TokenTTL > 0 {
		exp := now.Add(s.cfg.TokenTTL)
		row.ExpiresAt = &exp
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return row, signed, nil
}
