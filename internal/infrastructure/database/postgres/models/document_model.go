package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentUploadModel is one cached onboarding upload. A user has at most one
// row per document type.
type DocumentUploadModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID       string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_document_uploads_user_type"`
	DocumentType string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_document_uploads_user_type"`
	FileKey      string    `gorm:"type:varchar(512);not null"`
	FileName     string    `gorm:"type:varchar(255)"`
	URL          *string   `gorm:"type:varchar(1024)"`
	UploadedAt   time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (DocumentUploadModel) TableName() string {
	return "document_uploads"
}
