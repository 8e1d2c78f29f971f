package sqlstore

import (
	"context"
	"fmt"

	"gorm.io/datatypes"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

// ActivityRepo is append-only; there is no update or delete path.
type ActivityRepo struct{ base }

func (r *ActivityRepo) Append(ctx context.Context, e *core.ActivityLogEntry) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	rec := activityRecord{
		EntityType:   string(e.EntityType),
		EntityID:     e.EntityID,
		ActivityType: string(e.ActivityType),
		Description:  e.Description,
		PerformedBy:  e.PerformedBy,
		Metadata:     datatypes.JSONMap(e.Metadata),
		CreatedAt:    e.CreatedAt.UTC(),
	}
	if err := db.Create(&rec).Error; err != nil {
		return fmt.Errorf("activity.insert: %w", err)
	}
	e.ID = rec.ID
	return nil
}

func (r *ActivityRepo) ListForEntity(ctx context.Context, entityType core.EntityType, entityID int64, limit int) ([]core.ActivityLogEntry, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var recs []activityRecord
	err := db.Where("entity_type = ? AND entity_id = ?", string(entityType), entityID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("activity.find: %w", err)
	}
	out := make([]core.ActivityLogEntry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toCore())
	}
	return out, nil
}
