package onboarding

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"vltd-dashboard/internal/domain/organization"
	appErrors "vltd-dashboard/pkg/errors"
)

// DefaultMaxDocumentSize is the largest accepted upload.
const DefaultMaxDocumentSize int64 = 5 << 20

var allowedMIMETypes = []string{"application/pdf", "image/jpeg", "image/png"}

// ValidateFile rejects empty, oversized, or non PDF/JPEG/PNG files before any
// upload. The type is sniffed from the content, not taken from the name.
func ValidateFile(doc Document, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDocumentSize
	}
	if !doc.DocumentType.Valid() {
		return appErrors.Validation(fmt.Sprintf("Unknown document type %q", doc.DocumentType))
	}
	name := strings.TrimSpace(doc.FileName)
	if name == "" {
		return appErrors.Validation("File name is required")
	}
	if len(doc.Content) == 0 {
		return appErrors.Validation(fmt.Sprintf("%s is empty", filepath.Base(name)))
	}
	if int64(len(doc.Content)) > maxBytes {
		return appErrors.Validation(fmt.Sprintf("%s exceeds the %d MB limit", filepath.Base(name), maxBytes>>20))
	}

	detected := mimetype.Detect(doc.Content)
	for _, allowed := range allowedMIMETypes {
		if detected.Is(allowed) {
			return nil
		}
	}
	return appErrors.Validation(fmt.Sprintf("%s must be a PDF, JPEG or PNG file (got %s)", filepath.Base(name), detected.String()))
}

// DisplayName is the label used in onboarding messages.
func DisplayName(t organization.DocumentType) string {
	switch t {
	case organization.DocGST:
		return "GST certificate"
	case organization.DocBalanceSheet:
		return "Balance sheet"
	case organization.DocAddressProof:
		return "Address proof"
	case organization.DocPAN:
		return "PAN card"
	case organization.DocUserPAN:
		return "User PAN card"
	case organization.DocUserAddressProof:
		return "User address proof"
	default:
		return string(t)
	}
}
