package onboarding

import (
	"vltd-dashboard/internal/domain/organization"
	"vltd-dashboard/internal/manufacturer/lifecycle"
)

// Document is one file selected for an onboarding slot.
type Document struct {
	DocumentType organization.DocumentType
	FileName     string
	Content      []byte
}

// UploadResult is the outcome for one document of a batch.
type UploadResult struct {
	Success      bool                      `json:"success"`
	DocumentType organization.DocumentType `json:"documentType"`
	Key          string                    `json:"key,omitempty"`
	Error        string                    `json:"error,omitempty"`
}

// Status is what the onboarding page renders.
type Status struct {
	ManufacturerID     string                        `json:"manufacturer_id"`
	Status             organization.ApprovalStatus   `json:"status"`
	RequiresOnboarding bool                          `json:"requires_onboarding"`
	Uploaded           []organization.CachedDocument `json:"uploaded"`
	Missing            []organization.DocumentType   `json:"missing"`
	ReadyToSubmit      bool                          `json:"ready_to_submit"`
}

// Review is the admin's view of one manufacturer.
type Review struct {
	Manufacturer *organization.Manufacturer    `json:"manufacturer"`
	Actions      lifecycle.Actions             `json:"actions"`
	Next         []organization.ApprovalStatus `json:"next"`
}
