package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"vltd-dashboard/internal/domain/organization"
	"vltd-dashboard/internal/infrastructure/database/postgres/models"
)

// DocumentRepository implements organization.DocumentCache
type DocumentRepository struct {
	db *DB
}

func NewDocumentRepository(db *DB) organization.DocumentCache {
	return &DocumentRepository{db: db}
}

// Put inserts or replaces the cached upload for (user, document type).
func (r *DocumentRepository) Put(ctx context.Context, doc *organization.CachedDocument) error {
	if strings.TrimSpace(doc.UserID) == "" {
		return fmt.Errorf("cached document without user id")
	}
	if !doc.DocumentType.Valid() {
		return fmt.Errorf("unknown document type %q", doc.DocumentType)
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}

	dbModel := toDocumentModel(doc)
	now := time.Now().UTC()
	dbModel.ID = uuid.New()
	dbModel.CreatedAt = now
	dbModel.UpdatedAt = now

	err := r.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "document_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"file_key", "file_name", "url", "uploaded_at", "updated_at"}),
		}).
		Create(dbModel).Error
	if err != nil {
		return fmt.Errorf("failed to cache document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) List(ctx context.Context, userID string) ([]organization.CachedDocument, error) {
	var rows []models.DocumentUploadModel
	err := r.db.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("document_type ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cached documents: %w", err)
	}

	docs := make([]organization.CachedDocument, len(rows))
	for i := range rows {
		docs[i] = toCachedDocument(&rows[i])
	}
	return docs, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, userID string, docType organization.DocumentType) error {
	err := r.db.DB.WithContext(ctx).
		Where("user_id = ? AND document_type = ?", userID, string(docType)).
		Delete(&models.DocumentUploadModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete cached document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Clear(ctx context.Context, userID string) error {
	err := r.db.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.DocumentUploadModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear cached documents: %w", err)
	}
	return nil
}

func toDocumentModel(doc *organization.CachedDocument) *models.DocumentUploadModel {
	m := &models.DocumentUploadModel{
		UserID:       doc.UserID,
		DocumentType: string(doc.DocumentType),
		FileKey:      doc.Key,
		FileName:     doc.FileName,
		UploadedAt:   doc.UploadedAt,
	}
	if doc.URL != "" {
		url := doc.URL
		m.URL = &url
	}
	return m
}

func toCachedDocument(m *models.DocumentUploadModel) organization.CachedDocument {
	doc := organization.CachedDocument{
		UserID:       m.UserID,
		DocumentType: organization.DocumentType(m.DocumentType),
		Key:          m.FileKey,
		FileName:     m.FileName,
		UploadedAt:   m.UploadedAt,
	}
	if m.URL != nil {
		doc.URL = *m.URL
	}
	return doc
}
