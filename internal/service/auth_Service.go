package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Marga-Ghale/ora-workspaces/internal/apperr"
	"github.com/Marga-Ghale/ora-workspaces/internal/config"
	"github.com/Marga-Ghale/ora-workspaces/internal/models"
	"github.com/Marga-Ghale/ora-workspaces/internal/repository"
)

// ============================================
// Auth Service
// ============================================

// AccessClaims are the claims carried by access tokens.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// Session is the result of a successful register, login or refresh.
type Session struct {
	User         *repository.User
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// AuthService is the in-process identity provider. Its failures are
// reported as upstream auth errors carrying the status to pass through.
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*Session, error)
	Login(ctx context.Context, req models.LoginRequest) (*Session, error)
	RefreshToken(ctx context.Context, refreshToken string) (*Session, error)
	// Logout deletes the refresh token (if any) and revokes the access token.
	Logout(ctx context.Context, claims *AccessClaims, refreshToken string) error
	ValidateToken(tokenString string) (*AccessClaims, error)
	// Authenticate validates the token and checks it was not revoked.
	Authenticate(ctx context.Context, tokenString string) (*AccessClaims, error)
}

type authService struct {
	cfg       *config.Config
	userRepo  repository.UserRepository
	blocklist TokenBlocklist
	log       *zap.Logger
}

func NewAuthService(cfg *config.Config, userRepo repository.UserRepository, blocklist TokenBlocklist, log *zap.Logger) AuthService {
	return &authService{cfg: cfg, userRepo: userRepo, blocklist: blocklist, log: log}
}

func (s *authService) Register(ctx context.Context, req models.RegisterRequest) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existingUser, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existingUser != nil {
		return nil, apperr.Upstream(http.StatusConflict, "user already exists", apperr.ErrEmailTaken)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &repository.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if repository.IsDuplicate(err, repository.ConstraintUserEmail) {
			return nil, apperr.Upstream(http.StatusConflict, "user already exists", apperr.ErrEmailTaken)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))
	return s.newSession(ctx, user)
}

func (s *authService) Login(ctx context.Context, req models.LoginRequest) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, apperr.Upstream(http.StatusUnauthorized, "invalid credentials", ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.Upstream(http.StatusUnauthorized, "invalid credentials", ErrInvalidCredentials)
	}

	return s.newSession(ctx, user)
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	rt, err := s.userRepo.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	if rt == nil {
		return nil, apperr.Upstream(http.StatusUnauthorized, "invalid refresh token", ErrInvalidToken)
	}

	// Refresh tokens are single use.
	if err := s.userRepo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("delete refresh token: %w", err)
	}
	if time.Now().After(rt.ExpiresAt) {
		return nil, apperr.Upstream(http.StatusUnauthorized, "invalid refresh token", ErrInvalidToken)
	}

	user, err := s.userRepo.FindByID(ctx, rt.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, apperr.Upstream(http.StatusUnauthorized, "invalid refresh token", ErrInvalidToken)
	}
	return s.newSession(ctx, user)
}

func (s *authService) Logout(ctx context.Context, claims *AccessClaims, refreshToken string) error {
	if refreshToken != "" {
		if err := s.userRepo.DeleteRefreshToken(ctx, refreshToken); err != nil {
			return fmt.Errorf("delete refresh token: %w", err)
		}
	}
	if s.blocklist == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.blocklist.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *authService) ValidateToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *authService) Authenticate(ctx context.Context, tokenString string) (*AccessClaims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if s.blocklist != nil && claims.ID != "" {
		revoked, err := s.blocklist.IsRevoked(ctx, claims.ID)
		if err != nil {
			// fail open on cache errors
			s.log.Warn("token blocklist lookup failed", zap.Error(err))
		} else if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

func (s *authService) newSession(ctx context.Context, user *repository.User) (*Session, error) {
	accessToken, refreshToken, err := s.generateTokens(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return &Session{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.cfg.AccessTokenTTL(),
	}, nil
}

func (s *authService) generateTokens(ctx context.Context, userID string) (string, string, error) {
	now := time.Now()
	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL())),
		},
	})

	accessTokenString, err := accessToken.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", "", err
	}

	rt := &repository.RefreshToken{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL()),
	}
	if err := s.userRepo.SaveRefreshToken(ctx, rt); err != nil {
		return "", "", err
	}

	return accessTokenString, rt.Token, nil
}

// IsAuthError reports whether err came from token validation.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenRevoked)
}
