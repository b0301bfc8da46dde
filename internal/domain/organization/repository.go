package organization

import (
	"context"
	"time"
)

// CachedDocument is an upload the backend accepted but that has not been
// submitted against the manufacturer profile yet.
type CachedDocument struct {
	UserID       string       `json:"user_id"`
	DocumentType DocumentType `json:"document_type"`
	Key          string       `json:"key"`
	FileName     string       `json:"file_name"`
	URL          string       `json:"url,omitempty"`
	UploadedAt   time.Time    `json:"uploaded_at"`
}

// DocumentCache remembers upload keys between requests. It is a convenience
// over the backend and is never read to decide approval state.
type DocumentCache interface {
	Put(ctx context.Context, doc *CachedDocument) error
	List(ctx context.Context, userID string) ([]CachedDocument, error)
	Delete(ctx context.Context, userID string, docType DocumentType) error
	Clear(ctx context.Context, userID string) error
}
