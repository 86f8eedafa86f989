package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"
)

// APIKeyRecord is a stored integration key. Ciphertext is produced by the
// secrets manager; the plaintext never reaches the database.
type APIKeyRecord struct {
	Service    string `gorm:"primaryKey;size:32"`
	Ciphertext string `gorm:"type:text"`
	Salt       string `gorm:"size:64"`
	// Fingerprint identifies the derived key, so rows sealed under another
	// master key can be detected.
	Fingerprint string `gorm:"size:32"`
	Masked      string `gorm:"size:128"`
	Status      string `gorm:"size:32"`
	Message     string `gorm:"type:text"`
	VerifiedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName pins the table name.
func (APIKeyRecord) TableName() string { return "api_keys" }

// SaveAPIKey inserts or replaces the key of rec.Service.
func (d *Database) SaveAPIKey(ctx context.Context, rec *APIKeyRecord) error {
	err := d.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "service"}},
		DoUpdates: clause.AssignmentColumns([]string{"ciphertext", "salt", "fingerprint", "masked", "status", "message", "verified_at", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to save %s key: %w", rec.Service, err)
	}
	return nil
}

// GetAPIKey returns the stored key for service.
func (d *Database) GetAPIKey(ctx context.Context, service string) (*APIKeyRecord, error) {
	var rec APIKeyRecord
	if err := d.DB.WithContext(ctx).First(&rec, "service = ?", service).Error; err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// ListAPIKeys returns every stored key ordered by service.
func (d *Database) ListAPIKeys(ctx context.Context) ([]APIKeyRecord, error) {
	var recs []APIKeyRecord
	if err := d.DB.WithContext(ctx).Order("service").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return recs, nil
}

// UpdateAPIKeyStatus records a verification outcome.
func (d *Database) UpdateAPIKeyStatus(ctx context.Context, service, status, message string, at time.Time) error {
	res := d.DB.WithContext(ctx).Model(&APIKeyRecord{}).
		Where("service = ?", service).
		Updates(map[string]interface{}{"status": status, "message": message, "verified_at": at})
	if res.Error != nil {
		return fmt.Errorf("failed to update %s key status: %w", service, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAPIKey removes the key of service.
func (d *Database) DeleteAPIKey(ctx context.Context, service string) error {
	res := d.DB.WithContext(ctx).Delete(&APIKeyRecord{}, "service = ?", service)
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s key: %w", service, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
