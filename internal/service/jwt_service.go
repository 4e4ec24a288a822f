package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"rmi/internal/domain"
)

const (
	tokenIssuer      = "rmi"
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
	// ErrRefreshReused indica que se presentó un refresh ya rotado; se cierran todas las sesiones.
	ErrRefreshReused = errors.New("refresh token reused")
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Claims identifica al dueño de la red y del historial; los handlers solo leen UserID.
type Claims struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTService firma access tokens cortos y refresh tokens rotativos.
type JWTService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      RefreshTokenStore
	logger     *zap.Logger
	now        func() time.Time
}

func NewJWTService(secret string, accessTTL, refreshTTL time.Duration, store RefreshTokenStore, logger *zap.Logger) *JWTService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	if store == nil {
		store = NewMemoryRefreshTokenStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JWTService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Issue emite un par nuevo y registra el jti del refresh.
func (s *JWTService) Issue(ctx context.Context, user domain.User) (TokenPair, error) {
	if len(s.secret) == 0 || user.ID == "" {
		return TokenPair{}, ErrJWTInvalid
	}
	now := s.now()
	access, err := s.sign(Claims{UserID: user.ID, Email: user.Email, TokenType: tokenTypeAccess}, now, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	jti := uuid.NewString()
	refreshClaims := Claims{UserID: user.ID, Email: user.Email, TokenType: tokenTypeRefresh}
	refreshClaims.ID = jti
	refresh, err := s.sign(refreshClaims, now, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.Save(ctx, jti, user.ID, s.refreshTTL); err != nil {
		return TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(s.accessTTL.Seconds())}, nil
}

// Rotate cambia un refresh vivo por un par nuevo. Un refresh firmado pero ya
// consumido revoca todas las sesiones del usuario.
func (s *JWTService) Rotate(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	owner, err := s.store.Owner(ctx, claims.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("rotate refresh: %w", err)
	}
	if owner == "" {
		s.logger.Warn("refresh token reuse detected", zap.String("user_id", claims.UserID))
		if err := s.store.RevokeUser(ctx, claims.UserID); err != nil {
			s.logger.Error("revoke user sessions failed", zap.String("user_id", claims.UserID), zap.Error(err))
		}
		return TokenPair{}, ErrRefreshReused
	}
	if owner != claims.UserID {
		return TokenPair{}, ErrJWTInvalid
	}
	if err := s.store.Revoke(ctx, claims.ID); err != nil {
		return TokenPair{}, fmt.Errorf("rotate refresh: %w", err)
	}
	return s.Issue(ctx, domain.User{ID: claims.UserID, Email: claims.Email})
}

// Revoke cierra la sesión asociada al refresh.
func (s *JWTService) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return err
	}
	return s.store.Revoke(ctx, claims.ID)
}

// RevokeAll cierra todas las sesiones del usuario.
func (s *JWTService) RevokeAll(ctx context.Context, userID string) error {
	return s.store.RevokeUser(ctx, userID)
}

func (s *JWTService) ParseAccessToken(accessToken string) (Claims, error) {
	return s.parse(accessToken, tokenTypeAccess)
}

func (s *JWTService) sign(claims Claims, now time.Time, ttl time.Duration) (string, error) {
	claims.RegisteredClaims.Issuer = tokenIssuer
	claims.RegisteredClaims.Subject = claims.UserID
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", claims.TokenType, err)
	}
	return signed, nil
}

func (s *JWTService) parse(raw, tokenType string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if len(s.secret) == 0 || raw == "" {
		return Claims{}, ErrJWTInvalid
	}
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(raw, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	if claims.TokenType != tokenType || strings.TrimSpace(claims.UserID) == "" || claims.Subject != claims.UserID {
		return Claims{}, ErrJWTInvalid
	}
	if tokenType == tokenTypeRefresh && claims.ID == "" {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}
