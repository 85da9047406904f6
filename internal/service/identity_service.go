package service

import (
	"crypto/rsa"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/booking-calendar-api/internal/models"
	"github.com/noah-isme/booking-calendar-api/pkg/config"
	appErrors "github.com/noah-isme/booking-calendar-api/pkg/errors"
)

// IdentityService verifies session tokens minted by the external identity provider.
type IdentityService struct {
	secret    []byte
	publicKey *rsa.PublicKey
	audience  []string
	parser    *jwt.Parser
	logger    *zap.Logger
}

// NewIdentityService builds a verifier. An RS256 public key takes precedence over the shared secret.
func NewIdentityService(cfg config.AuthConfig, logger *zap.Logger) (*IdentityService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &IdentityService{audience: cfg.Audience, logger: logger}

	methods := []string{jwt.SigningMethodHS256.Alg()}
	if cfg.PublicKeyPEM != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parse identity public key: %w", err)
		}
		svc.publicKey = key
		methods = []string{jwt.SigningMethodRS256.Alg()}
	} else {
		if cfg.Secret == "" {
			return nil, fmt.Errorf("identity verification needs AUTH_JWT_SECRET or AUTH_JWT_PUBLIC_KEY")
		}
		svc.secret = []byte(cfg.Secret)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	svc.parser = jwt.NewParser(opts...)
	return svc, nil
}

// Verify parses and validates a bearer token returning the identity claims.
func (s *IdentityService) Verify(tokenString string) (*models.IdentityClaims, error) {
	claims := &models.IdentityClaims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, s.key)
	if err != nil {
		s.logger.Debug("identity token rejected", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	if !token.Valid || claims.Subject == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if len(s.audience) > 0 && !slices.ContainsFunc(claims.Audience, func(aud string) bool {
		return slices.Contains(s.audience, aud)
	}) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token audience not accepted")
	}
	return claims, nil
}

func (s *IdentityService) key(*jwt.Token) (interface{}, error) {
	if s.publicKey != nil {
		return s.publicKey, nil
	}
	return s.secret, nil
}
