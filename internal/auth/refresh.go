package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/store"
	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

// ErrRefreshRejected is returned for unknown, revoked, expired or malformed refresh tokens.
var ErrRefreshRejected = errors.New("refresh token rejected")

// RefreshStore keeps issued refresh tokens so each can be used once.
type RefreshStore interface {
	Save(ctx context.Context, token, subject, role string, expiresAt time.Time) error
	Consume(ctx context.Context, token string) (subject, role string, err error)
}

// PGRefreshStore stores SHA-256 digests of refresh tokens in Postgres.
type PGRefreshStore struct {
	db *sqlx.DB
}

func NewRefreshStore(db *sqlx.DB) *PGRefreshStore {
	return &PGRefreshStore{db: db}
}

func (s *PGRefreshStore) Save(ctx context.Context, token, subject, role string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, subject, role, expires_at) VALUES ($1,$2,$3,$4)
	`, digest(token), subject, role, expiresAt)
	return store.Translate("save refresh token", err)
}

// Consume revokes a live token and returns who it was issued to.
func (s *PGRefreshStore) Consume(ctx context.Context, token string) (string, string, error) {
	var subject, role string
	err := s.db.QueryRowxContext(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE token = $1 AND NOT revoked AND expires_at > NOW()
		RETURNING subject, role
	`, digest(token)).Scan(&subject, &role)
	if err != nil {
		return "", "", store.Translate("consume refresh token", err)
	}
	return subject, role, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Sessions issues token pairs and rotates refresh tokens.
type Sessions struct {
	Issuer     string
	Key        string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Store      RefreshStore
}

// Start issues a fresh pair for subject and records the refresh token.
func (s *Sessions) Start(ctx context.Context, subject, role string) (TokenPair, error) {
	pair, err := Issue(subject, role, s.Issuer, s.Key, s.AccessTTL, s.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.Store.Save(ctx, pair.RefreshToken, subject, role, pair.RefreshExp); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. The old token is revoked.
func (s *Sessions) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := Parse(refreshToken, s.Key, s.Issuer)
	if err != nil || claims.Type != typeRefresh {
		return TokenPair{}, ErrRefreshRejected
	}
	subject, role, err := s.Store.Consume(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return TokenPair{}, ErrRefreshRejected
		}
		return TokenPair{}, err
	}
	return s.Start(ctx, subject, role)
}
