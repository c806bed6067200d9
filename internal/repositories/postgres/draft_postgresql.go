package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/formlab/builder-service/internal/models"
	"github.com/formlab/builder-service/internal/repositories"
)

type DraftPostgreSQL struct {
	db *gorm.DB
}

func NewDraftPostgreSQL(db *gorm.DB) repositories.DraftRepository {
	return &DraftPostgreSQL{db: db}
}

// Get retrieves the draft snapshot for one builder. A missing row is
// (nil, nil): the caller starts from an empty collection.
func (d *DraftPostgreSQL) Get(ctx context.Context, projectID string, kind models.BuilderKind) (*models.Draft, error) {
	var draft models.Draft
	err := d.db.WithContext(ctx).
		Where("project_id = ? AND kind = ?", projectID, kind).
		First(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	return &draft, nil
}

// Save upserts the serialized question snapshot.
func (d *DraftPostgreSQL) Save(ctx context.Context, projectID string, kind models.BuilderKind, questions []models.Question) error {
	draft := models.Draft{ProjectID: projectID, Kind: kind}
	if err := draft.EncodeQuestions(questions); err != nil {
		return fmt.Errorf("failed to encode draft snapshot: %w", err)
	}

	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"questions", "updated_at"}),
	}).Create(&draft).Error
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Delete removes the draft row; deleting a missing row succeeds.
func (d *DraftPostgreSQL) Delete(ctx context.Context, projectID string, kind models.BuilderKind) error {
	err := d.db.WithContext(ctx).
		Where("project_id = ? AND kind = ?", projectID, kind).
		Delete(&models.Draft{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
