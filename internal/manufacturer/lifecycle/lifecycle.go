package lifecycle

import (
	"fmt"
	"strings"

	"vltd-dashboard/internal/domain/organization"
	appErrors "vltd-dashboard/pkg/errors"
)

// MinPasswordLength applies to the password issued at acknowledgement.
const MinPasswordLength = 6

// State machine for manufacturer approval. Transitions only move forward.
var validTransitions = map[organization.ApprovalStatus][]organization.ApprovalStatus{
	organization.StatusPending: {
		organization.StatusAcknowledged,
	},
	organization.StatusAcknowledged: {
		organization.StatusApproved,
	},
	organization.StatusApproved: {
		// Terminal state - no transitions
	},
}

// ValidateStatusTransition checks if status transition is allowed
func ValidateStatusTransition(currentStatus, newStatus organization.ApprovalStatus) error {
	allowedStatuses, exists := validTransitions[currentStatus]
	if !exists {
		return appErrors.Validation(fmt.Sprintf("Unknown current status: %s", currentStatus))
	}

	for _, allowed := range allowedStatuses {
		if newStatus == allowed {
			return nil
		}
	}

	return appErrors.Conflict(
		"INVALID_TRANSITION",
		fmt.Sprintf("Cannot transition from %s to %s", currentStatus, newStatus),
		nil,
	)
}

// GetAllowedTransitions returns allowed next statuses
func GetAllowedTransitions(currentStatus organization.ApprovalStatus) []organization.ApprovalStatus {
	return validTransitions[currentStatus]
}

// ValidateAcknowledgement checks a PENDING manufacturer can be acknowledged
// with the given password.
func ValidateAcknowledgement(m *organization.Manufacturer, password string) error {
	if err := ValidateStatusTransition(m.Status, organization.StatusAcknowledged); err != nil {
		return err
	}
	if len(strings.TrimSpace(password)) < MinPasswordLength {
		return appErrors.Validation(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

// ValidateApproval checks the document gate for an ACKNOWLEDGED manufacturer.
func ValidateApproval(m *organization.Manufacturer) error {
	if err := ValidateStatusTransition(m.Status, organization.StatusApproved); err != nil {
		return err
	}
	if missing := m.Documents.Missing(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, d := range missing {
			names[i] = string(d)
		}
		return appErrors.Validation("All documents must be uploaded before approval. Missing: " + strings.Join(names, ", "))
	}
	return nil
}

// Actions describes which lifecycle buttons a view should enable.
type Actions struct {
	CanAcknowledge   bool                        `json:"can_acknowledge"`
	CanApprove       bool                        `json:"can_approve"`
	MissingDocuments []organization.DocumentType `json:"missing_documents"`
}

func AvailableActions(m *organization.Manufacturer) Actions {
	missing := m.Documents.Missing()
	return Actions{
		CanAcknowledge:   m.Status == organization.StatusPending,
		CanApprove:       m.Status == organization.StatusAcknowledged && len(missing) == 0,
		MissingDocuments: missing,
	}
}

// RequiresOnboarding reports whether a logged-in manufacturer must be sent to
// the document upload flow instead of the dashboard.
func RequiresOnboarding(status organization.ApprovalStatus) bool {
	return status != organization.StatusApproved
}
