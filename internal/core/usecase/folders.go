package usecase

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/docudex/docudex-api/internal/core/domain"
	"github.com/docudex/docudex-api/internal/core/ports"
)

const maxFolderNameLength = 255

type FolderService struct {
	repo  ports.FolderRepository
	clock domain.Clock
}

func NewFolderService(repo ports.FolderRepository, clock domain.Clock) *FolderService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &FolderService{repo: repo, clock: clock}
}

func (s *FolderService) List(ctx context.Context, ownerID string) ([]domain.Folder, error) {
	return s.repo.List(ctx, ownerID)
}

// Create makes a folder; a parent, when given, must belong to the same owner.
func (s *FolderService) Create(ctx context.Context, ownerID, name string, parentID *string) (*domain.Folder, error) {
	name = strings.TrimSpace(name)
	if err := validateFolderName(name); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate folder", err)
	}
	if parentID != nil && *parentID == "" {
		parentID = nil
	}
	if parentID != nil {
		if _, err := s.repo.GetByID(ctx, ownerID, *parentID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	folder := &domain.Folder{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

func (s *FolderService) Rename(ctx context.Context, ownerID, id, name string) (*domain.Folder, error) {
	name = strings.TrimSpace(name)
	if err := validateFolderName(name); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate folder", err)
	}
	return s.repo.Rename(ctx, ownerID, id, name)
}

// Delete removes the folder; documents inside it are detached, not deleted.
func (s *FolderService) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.Delete(ctx, ownerID, id)
}

func validateFolderName(name string) error {
	return validation.Validate(name,
		validation.Required.Error("folder name is required"),
		validation.Length(1, maxFolderNameLength),
	)
}
