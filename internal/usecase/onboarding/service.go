// Package onboarding runs the manufacturer document upload flow and the
// admin side of the approval lifecycle.
package onboarding

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"vltd-dashboard/internal/backend"
	"vltd-dashboard/internal/domain/organization"
	"vltd-dashboard/internal/inflight"
	"vltd-dashboard/internal/logger"
	"vltd-dashboard/internal/manufacturer/lifecycle"
	appErrors "vltd-dashboard/pkg/errors"
)

// ManufacturerBackend is the manufacturer client surface used here.
type ManufacturerBackend interface {
	Profile(ctx context.Context) (*organization.Manufacturer, error)
	UploadDocument(ctx context.Context, docType organization.DocumentType, filename string, content []byte) (*backend.UploadedDocument, error)
	SubmitDocuments(ctx context.Context, keys map[organization.DocumentType]string) error
}

// AdminBackend is the admin client surface used for approvals.
type AdminBackend interface {
	GetManufacturer(ctx context.Context, id string) (*organization.Manufacturer, error)
	AcknowledgeManufacturer(ctx context.Context, id, password string) error
	ApproveManufacturer(ctx context.Context, id string) error
}

type Service struct {
	cache    organization.DocumentCache
	guard    *inflight.Guard
	maxBytes int64
}

func NewService(cache organization.DocumentCache, guard *inflight.Guard, maxBytes int64) *Service {
	if guard == nil {
		guard = inflight.New()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDocumentSize
	}
	return &Service{cache: cache, guard: guard, maxBytes: maxBytes}
}

// UploadMultipleDocuments uploads a batch. Each document succeeds or fails on
// its own; results are in input order. Invalid files are never sent.
func (s *Service) UploadMultipleDocuments(ctx context.Context, m ManufacturerBackend, userID string, docs []Document) []UploadResult {
	results := make([]UploadResult, len(docs))
	seen := make(map[organization.DocumentType]bool, len(docs))

	var wg sync.WaitGroup
	for i, doc := range docs {
		results[i].DocumentType = doc.DocumentType

		if seen[doc.DocumentType] {
			results[i].Error = fmt.Sprintf("%s selected more than once", DisplayName(doc.DocumentType))
			continue
		}
		seen[doc.DocumentType] = true

		if err := ValidateFile(doc, s.maxBytes); err != nil {
			results[i].Error = appErrors.Message(err)
			continue
		}

		wg.Add(1)
		go func(i int, doc Document) {
			defer wg.Done()
			results[i] = s.uploadOne(ctx, m, userID, doc)
		}(i, doc)
	}
	wg.Wait()

	s.logBatch(userID, "documents_uploaded", results)
	return results
}

// RetryFailedUploads re-attempts only the failed entries of previous using the
// files in files. Successful entries are returned untouched and never
// re-uploaded.
func (s *Service) RetryFailedUploads(ctx context.Context, m ManufacturerBackend, userID string, previous []UploadResult, files map[organization.DocumentType]Document) []UploadResult {
	results := make([]UploadResult, len(previous))
	copy(results, previous)

	var wg sync.WaitGroup
	for i, prev := range previous {
		if prev.Success {
			continue
		}
		doc, ok := files[prev.DocumentType]
		if !ok {
			results[i] = UploadResult{
				DocumentType: prev.DocumentType,
				Error:        fmt.Sprintf("Select the %s file again to retry", strings.ToLower(DisplayName(prev.DocumentType))),
			}
			continue
		}
		doc.DocumentType = prev.DocumentType
		if err := ValidateFile(doc, s.maxBytes); err != nil {
			results[i] = UploadResult{DocumentType: prev.DocumentType, Error: appErrors.Message(err)}
			continue
		}

		wg.Add(1)
		go func(i int, doc Document) {
			defer wg.Done()
			results[i] = s.uploadOne(ctx, m, userID, doc)
		}(i, doc)
	}
	wg.Wait()

	s.logBatch(userID, "documents_retried", results)
	return results
}

func (s *Service) uploadOne(ctx context.Context, m ManufacturerBackend, userID string, doc Document) UploadResult {
	result := UploadResult{DocumentType: doc.DocumentType}

	release, err := s.guard.Acquire("document:" + userID + ":" + string(doc.DocumentType))
	if err != nil {
		result.Error = appErrors.Message(err)
		return result
	}
	defer release()

	uploaded, err := m.UploadDocument(ctx, doc.DocumentType, doc.FileName, doc.Content)
	if err != nil {
		result.Error = appErrors.Message(err)
		return result
	}

	result.Success = true
	result.Key = uploaded.Key

	if s.cache != nil {
		cached := &organization.CachedDocument{
			UserID:       userID,
			DocumentType: doc.DocumentType,
			Key:          uploaded.Key,
			FileName:     doc.FileName,
			URL:          uploaded.URL,
		}
		if err := s.cache.Put(ctx, cached); err != nil {
			logger.Warn("Failed to cache uploaded document",
				zap.String("user_id", userID),
				zap.String("document_type", string(doc.DocumentType)),
				zap.Error(err),
			)
		}
	}
	return result
}

func (s *Service) logBatch(userID, event string, results []UploadResult) {
	var ok, failed int
	for _, r := range results {
		if r.Success {
			ok++
		} else {
			failed++
		}
	}
	logger.Info("Onboarding document batch finished",
		zap.String("user_id", userID),
		zap.Int("succeeded", ok),
		zap.Int("failed", failed),
		zap.String("event", event),
	)
}

// CachedUploads lists uploads not yet submitted.
func (s *Service) CachedUploads(ctx context.Context, userID string) ([]organization.CachedDocument, error) {
	if s.cache == nil {
		return nil, nil
	}
	return s.cache.List(ctx, userID)
}

// Status combines the backend profile with the local upload cache.
func (s *Service) Status(ctx context.Context, m ManufacturerBackend, userID string) (*Status, error) {
	profile, err := m.Profile(ctx)
	if err != nil {
		return nil, err
	}
	if profile.Status == "" {
		profile.Status = organization.StatusPending
	}
	cached, err := s.CachedUploads(ctx, userID)
	if err != nil {
		return nil, err
	}

	have := make(map[organization.DocumentType]bool, len(cached))
	for _, c := range cached {
		have[c.DocumentType] = true
	}
	var missing []organization.DocumentType
	for _, t := range organization.RequiredDocuments {
		if profile.Documents.URL(t) == "" && !have[t] {
			missing = append(missing, t)
		}
	}

	return &Status{
		ManufacturerID:     profile.ID,
		Status:             profile.Status,
		RequiresOnboarding: lifecycle.RequiresOnboarding(profile.Status),
		Uploaded:           cached,
		Missing:            missing,
		ReadyToSubmit:      len(missing) == 0 && len(cached) > 0,
	}, nil
}

// Submit sends the cached upload keys to the backend and clears the cache on
// success. Every slot must be covered by the profile or the cache.
func (s *Service) Submit(ctx context.Context, m ManufacturerBackend, userID string) error {
	status, err := s.Status(ctx, m, userID)
	if err != nil {
		return err
	}
	if len(status.Missing) > 0 {
		names := make([]string, len(status.Missing))
		for i, t := range status.Missing {
			names[i] = DisplayName(t)
		}
		return appErrors.Validation("Upload all documents before submitting. Missing: " + strings.Join(names, ", "))
	}
	if len(status.Uploaded) == 0 {
		return appErrors.Validation("No new documents to submit")
	}

	release, err := s.guard.Acquire("documents-submit:" + userID)
	if err != nil {
		return err
	}
	defer release()

	keys := make(map[organization.DocumentType]string, len(status.Uploaded))
	for _, c := range status.Uploaded {
		keys[c.DocumentType] = c.Key
	}
	if err := m.SubmitDocuments(ctx, keys); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Clear(ctx, userID); err != nil {
			logger.Warn("Failed to clear document cache after submit",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}

	logger.Info("Onboarding documents submitted",
		zap.String("user_id", userID),
		zap.Int("documents", len(keys)),
		zap.String("event", "documents_submitted"),
	)
	return nil
}

// Review loads a manufacturer with the actions its current status allows.
func (s *Service) Review(ctx context.Context, a AdminBackend, id string) (*Review, error) {
	m, err := a.GetManufacturer(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status == "" {
		m.Status = organization.StatusPending
	}
	return &Review{
		Manufacturer: m,
		Actions:      lifecycle.AvailableActions(m),
		Next:         lifecycle.GetAllowedTransitions(m.Status),
	}, nil
}

// Acknowledge moves a PENDING manufacturer to ACKNOWLEDGED and provisions its
// login password. The status is re-read first so a stale view cannot skip a
// state.
func (s *Service) Acknowledge(ctx context.Context, a AdminBackend, id, password string) (*Review, error) {
	return s.advance(ctx, a, id, func(m *organization.Manufacturer) error {
		if err := lifecycle.ValidateAcknowledgement(m, password); err != nil {
			return err
		}
		return a.AcknowledgeManufacturer(ctx, id, password)
	})
}

// Approve moves an ACKNOWLEDGED manufacturer with every document present to
// APPROVED.
func (s *Service) Approve(ctx context.Context, a AdminBackend, id string) (*Review, error) {
	return s.advance(ctx, a, id, func(m *organization.Manufacturer) error {
		if err := lifecycle.ValidateApproval(m); err != nil {
			return err
		}
		return a.ApproveManufacturer(ctx, id)
	})
}

func (s *Service) advance(ctx context.Context, a AdminBackend, id string, step func(*organization.Manufacturer) error) (*Review, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Validation("Manufacturer id is required")
	}

	release, err := s.guard.Acquire("manufacturer:" + id)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := a.GetManufacturer(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == "" {
		current.Status = organization.StatusPending
	}
	if err := step(current); err != nil {
		return nil, err
	}

	return s.Review(ctx, a, id)
}
