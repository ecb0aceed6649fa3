package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/docudex/docudex-api/internal/core/domain"
)

type FolderRepository struct {
	db *sql.DB
}

func NewFolderRepository(db *sql.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

func (r *FolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO folders (id, user_id, name, parent_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, folder.ID, folder.OwnerID, folder.Name, folder.ParentID, folder.CreatedAt, folder.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	return nil
}

func (r *FolderRepository) List(ctx context.Context, ownerID string) ([]domain.Folder, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, name, parent_id, created_at, updated_at
FROM folders
WHERE user_id = $1
ORDER BY name, id
`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Folder, 0)
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		out = append(out, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}
	return out, nil
}

func (r *FolderRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Folder, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, name, parent_id, created_at, updated_at
FROM folders
WHERE user_id = $1 AND id = $2
`, ownerID, id)

	folder, err := scanFolder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, folderNotFound("get folder", id)
		}
		return nil, fmt.Errorf("get folder by id: %w", err)
	}
	return &folder, nil
}

func (r *FolderRepository) Rename(ctx context.Context, ownerID, id, name string) (*domain.Folder, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE folders
SET name = $3, updated_at = $4
WHERE user_id = $1 AND id = $2
RETURNING id, user_id, name, parent_id, created_at, updated_at
`, ownerID, id, name, time.Now().UTC())

	folder, err := scanFolder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, folderNotFound("rename folder", id)
		}
		return nil, fmt.Errorf("rename folder: %w", err)
	}
	return &folder, nil
}

// Delete removes the folder and its subfolders; documents inside are detached, not deleted.
func (r *FolderRepository) Delete(ctx context.Context, ownerID, id string) error {
	result, err := r.db.ExecContext(ctx, `
DELETE FROM folders
WHERE user_id = $1 AND id = $2
`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	n, err := rowsAffected(result, "delete folder")
	if err != nil {
		return err
	}
	if n == 0 {
		return folderNotFound("delete folder", id)
	}
	return nil
}

func scanFolder(row rowScanner) (domain.Folder, error) {
	var folder domain.Folder
	var parentID sql.NullString
	err := row.Scan(
		&folder.ID,
		&folder.OwnerID,
		&folder.Name,
		&parentID,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
	if err != nil {
		return domain.Folder{}, err
	}
	if parentID.Valid {
		folder.ParentID = &parentID.String
	}
	return folder, nil
}

func folderNotFound(operation, id string) error {
	return domain.WrapError(domain.ErrFolderNotFound, operation, fmt.Errorf("id=%s", id))
}
