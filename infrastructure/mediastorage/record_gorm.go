package mediastorage

import (
	"context"

	"gorm.io/gorm"

	domainMedia "github.com/AzielCF/az-mediahub/domains/media"
)

// RecordGormRepository persists ingestion records through gorm, sharing the
// application's sqlite/postgres connection.
type RecordGormRepository struct {
	db *gorm.DB
}

func NewRecordGormRepository(db *gorm.DB) *RecordGormRepository {
	return &RecordGormRepository{db: db}
}

func (r *RecordGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&domainMedia.Record{})
}

func (r *RecordGormRepository) Save(ctx context.Context, record *domainMedia.Record) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *RecordGormRepository) FindByMessageID(ctx context.Context, messageID string) ([]domainMedia.Record, error) {
	var records []domainMedia.Record
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
