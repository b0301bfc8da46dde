package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vltd-dashboard/internal/domain/organization"
	appErrors "vltd-dashboard/pkg/errors"
)

func completeDocs() organization.Documents {
	return organization.Documents{
		GSTCertificate:   "k1",
		BalanceSheet:     "k2",
		AddressProof:     "k3",
		PANCard:          "k4",
		UserPANCard:      "k5",
		UserAddressProof: "k6",
	}
}

func TestValidateStatusTransition_OnlyForward(t *testing.T) {
	statuses := []organization.ApprovalStatus{
		organization.StatusPending,
		organization.StatusAcknowledged,
		organization.StatusApproved,
	}

	for i, from := range statuses {
		for j, to := range statuses {
			err := ValidateStatusTransition(from, to)
			if j == i+1 {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.Error(t, err, "%s -> %s", from, to)
			}
		}
	}
}

func TestValidateStatusTransition_UnknownStatus(t *testing.T) {
	err := ValidateStatusTransition("REJECTED", organization.StatusApproved)
	require.Error(t, err)
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
}

func TestValidateAcknowledgement(t *testing.T) {
	m := &organization.Manufacturer{Status: organization.StatusPending}

	err := ValidateAcknowledgement(m, "12345")
	require.Error(t, err)
	assert.Equal(t, "Password must be at least 6 characters", appErrors.Message(err))

	assert.NoError(t, ValidateAcknowledgement(m, "123456"))

	m.Status = organization.StatusAcknowledged
	err = ValidateAcknowledgement(m, "123456")
	assert.Equal(t, appErrors.KindConflict, appErrors.KindOf(err))
}

func TestValidateApproval(t *testing.T) {
	m := &organization.Manufacturer{Status: organization.StatusPending, Documents: completeDocs()}
	assert.Error(t, ValidateApproval(m), "cannot skip ACKNOWLEDGED")

	m.Status = organization.StatusAcknowledged
	m.Documents.PANCard = ""
	err := ValidateApproval(m)
	require.Error(t, err)
	assert.Contains(t, appErrors.Message(err), "pan_card")

	m.Documents = completeDocs()
	assert.NoError(t, ValidateApproval(m))

	m.Status = organization.StatusApproved
	assert.Error(t, ValidateApproval(m))
}

func TestAvailableActions(t *testing.T) {
	m := &organization.Manufacturer{Status: organization.StatusAcknowledged}
	actions := AvailableActions(m)
	assert.False(t, actions.CanAcknowledge)
	assert.False(t, actions.CanApprove)
	assert.Len(t, actions.MissingDocuments, 6)

	m.Documents = completeDocs()
	actions = AvailableActions(m)
	assert.True(t, actions.CanApprove)
	assert.Empty(t, actions.MissingDocuments)
}

func TestRequiresOnboarding(t *testing.T) {
	assert.True(t, RequiresOnboarding(organization.StatusPending))
	assert.True(t, RequiresOnboarding(organization.StatusAcknowledged))
	assert.False(t, RequiresOnboarding(organization.StatusApproved))
}
