package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/docudex/docudex-api/internal/core/domain"
	"github.com/docudex/docudex-api/internal/core/ports"
)

const shareTokenBytes = 32

type ShareService struct {
	shares    ports.ShareRepository
	documents ports.DocumentRepository
	clock     domain.Clock
	baseURL   string
}

func NewShareService(shares ports.ShareRepository, documents ports.DocumentRepository, clock domain.Clock, baseURL string) *ShareService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &ShareService{
		shares:    shares,
		documents: documents,
		clock:     clock,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

func (s *ShareService) Create(ctx context.Context, input domain.ShareInput) (*domain.ShareLink, error) {
	if input.ExpiresInHours == 0 {
		input.ExpiresInHours = domain.DefaultShareExpiryHours
	}
	if err := validateShareInput(&input); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate share", err)
	}
	if _, err := s.documents.GetByID(ctx, input.OwnerID, input.DocumentID); err != nil {
		return nil, err
	}

	token, err := newShareToken()
	if err != nil {
		return nil, fmt.Errorf("generate share token: %w", err)
	}
	now := s.clock.Now()
	share := &domain.DocumentShare{
		ID:             uuid.NewString(),
		DocumentID:     input.DocumentID,
		OwnerID:        input.OwnerID,
		Token:          token,
		ExpiresAt:      now.Add(time.Duration(input.ExpiresInHours) * time.Hour),
		RecipientEmail: input.RecipientEmail,
		CreatedAt:      now,
	}
	if err := s.shares.Create(ctx, share); err != nil {
		return nil, err
	}
	return &domain.ShareLink{
		Token:     token,
		ShareURL:  s.baseURL + "/share/" + token,
		ExpiresAt: share.ExpiresAt,
	}, nil
}

func (s *ShareService) ListForDocument(ctx context.Context, ownerID, documentID string) ([]domain.DocumentShare, error) {
	if _, err := s.documents.GetByID(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	return s.shares.ListForDocument(ctx, ownerID, documentID)
}

func (s *ShareService) Revoke(ctx context.Context, ownerID, token string) error {
	return s.shares.Revoke(ctx, ownerID, token)
}

// Resolve is unauthenticated. Unknown and expired tokens look the same to the caller.
func (s *ShareService) Resolve(ctx context.Context, token string) (*domain.SharedDocumentView, error) {
	if len(token) != 2*shareTokenBytes {
		return nil, domain.WrapError(domain.ErrShareNotFound, "resolve share", fmt.Errorf("malformed token"))
	}
	return s.shares.Resolve(ctx, token, s.clock.Now())
}

func validateShareInput(input *domain.ShareInput) error {
	return validation.ValidateStruct(input,
		validation.Field(&input.OwnerID, validation.Required),
		validation.Field(&input.DocumentID, validation.Required),
		validation.Field(&input.ExpiresInHours, validation.Min(1), validation.Max(domain.MaxShareExpiryHours)),
		validation.Field(&input.RecipientEmail, is.EmailFormat),
	)
}

func newShareToken() (string, error) {
	raw := make([]byte, shareTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
