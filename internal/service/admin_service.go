package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "vntrbirds-be/pkg/errors"
	"vntrbirds-be/pkg/logger"
	"vntrbirds-be/pkg/redis"
)

// Admin gate messages
const (
	MsgWrongPassphrase = "Incorrect passphrase."
	MsgAdminRequired   = "Admin access required."
)

// AdminClaims is the JWT payload of an admin token
type AdminClaims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

// AdminToken is issued on login
type AdminToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type adminService struct {
	passphrase []byte
	secret     []byte
	ttl        time.Duration
	redis      *redis.Client
	logger     *logger.Logger
	now        func() time.Time
}

// NewAdminService creates the admin gate. Without a secret, tokens are signed
// with a random key and do not survive a restart. redisClient may be nil, in
// which case logout cannot revoke tokens.
func NewAdminService(passphrase, secret string, ttl time.Duration, redisClient *redis.Client, log *logger.Logger) AdminService {
	l := log.Named("admin")

	key := []byte(secret)
	if len(key) == 0 {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			panic(fmt.Sprintf("failed to generate admin token key: %v", err))
		}
		key = []byte(hex.EncodeToString(buf))
		l.Warn("ADMIN_TOKEN_SECRET not set, admin tokens will not survive a restart")
	}
	if passphrase == "" {
		l.Warn("ADMIN_PASSPHRASE not set, admin login is disabled")
	}

	return &adminService{
		passphrase: []byte(passphrase),
		secret:     key,
		ttl:        ttl,
		redis:      redisClient,
		logger:     l,
		now:        time.Now,
	}
}

// Login checks the passphrase in constant time and issues a token
func (s *adminService) Login(ctx context.Context, passphrase string) (*AdminToken, error) {
	if len(s.passphrase) == 0 || subtle.ConstantTimeCompare([]byte(passphrase), s.passphrase) != 1 {
		s.logger.Warn("Admin login rejected")
		return nil, apperrors.NewAuthenticationError(MsgWrongPassphrase)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := AdminClaims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apperrors.NewInternalError(MsgSomethingWrong, err)
	}

	s.logger.WithField("jti", claims.ID).Info("Admin logged in")
	return &AdminToken{Token: signed, ExpiresAt: expiresAt}, nil
}

func (s *adminService) parse(token string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if !claims.Admin {
		return nil, errors.New("token does not carry the admin claim")
	}
	return claims, nil
}

// ValidateToken verifies signature, expiry, the admin claim and revocation
func (s *adminService) ValidateToken(ctx context.Context, token string) (*AdminClaims, error) {
	if token == "" {
		return nil, apperrors.NewAuthenticationError(MsgAdminRequired)
	}

	claims, err := s.parse(token)
	if err != nil {
		s.logger.WithError(err).Debug("Admin token rejected")
		return nil, apperrors.NewAuthenticationError(MsgAdminRequired)
	}

	if s.redis != nil && claims.ID != "" {
		n, err := s.redis.Exists(ctx, s.redis.KeyBuilder.KeyAdminRevoked(claims.ID))
		if err != nil {
			// Revocation is best effort
			s.logger.WithError(err).Warn("Failed to check admin token revocation")
		} else if n > 0 {
			return nil, apperrors.NewAuthenticationError(MsgAdminRequired)
		}
	}

	return claims, nil
}

// Logout revokes the token until it would have expired anyway
func (s *adminService) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil || s.redis == nil || claims.ID == "" {
		return nil
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, s.redis.KeyBuilder.KeyAdminRevoked(claims.ID), "1", ttl); err != nil {
		s.logger.WithError(err).Warn("Failed to revoke admin token")
		return apperrors.NewInternalError(MsgSomethingWrong, err)
	}

	s.logger.WithField("jti", claims.ID).Info("Admin logged out")
	return nil
}
