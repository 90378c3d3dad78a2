package dbmysql

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/common"
)

type AuditRow struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Collection string    `gorm:"size:32;index:idx_audit_record"`
	RecordID   string    `gorm:"size:64;index:idx_audit_record"`
	Action     string    `gorm:"size:16"`
	ActorEmail string    `gorm:"size:255"`
	OccurredAt time.Time `gorm:"index"`
}

func (AuditRow) TableName() string {
	return "audit_trail"
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) common.AuditRecorder {
	return &auditRepository{db: db}
}

func (r *auditRepository) Record(ctx context.Context, entry common.AuditEntry) error {
	row := &AuditRow{
		ID:         entry.ID,
		Collection: entry.Collection,
		RecordID:   entry.RecordID,
		Action:     entry.Action,
		ActorEmail: entry.ActorEmail,
		OccurredAt: entry.OccurredAt,
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

func (r *auditRepository) ByCollection(ctx context.Context, collection string, limit, offset int) ([]common.AuditEntry, error) {
	query := r.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("occurred_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []AuditRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	out := make([]common.AuditEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, common.AuditEntry{
			ID:         row.ID,
			Collection: row.Collection,
			RecordID:   row.RecordID,
			Action:     row.Action,
			ActorEmail: row.ActorEmail,
			OccurredAt: row.OccurredAt,
		})
	}
	return out, nil
}
