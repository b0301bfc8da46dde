package onboarding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vltd-dashboard/internal/domain/organization"
	appErrors "vltd-dashboard/pkg/errors"
)

type fakeAdmin struct {
	m            organization.Manufacturer
	acknowledged []string
	approved     int
}

func (f *fakeAdmin) GetManufacturer(ctx context.Context, id string) (*organization.Manufacturer, error) {
	if id != f.m.ID {
		return nil, appErrors.NotFound("MANUFACTURER_NOT_FOUND", "Manufacturer not found", appErrors.ErrNotFound)
	}
	m := f.m
	return &m, nil
}

func (f *fakeAdmin) AcknowledgeManufacturer(ctx context.Context, id, password string) error {
	f.acknowledged = append(f.acknowledged, password)
	f.m.Status = organization.StatusAcknowledged
	return nil
}

func (f *fakeAdmin) ApproveManufacturer(ctx context.Context, id string) error {
	f.approved++
	f.m.Status = organization.StatusApproved
	return nil
}

func completeDocuments() organization.Documents {
	return organization.Documents{
		GSTCertificate:   "a",
		BalanceSheet:     "b",
		AddressProof:     "c",
		PANCard:          "d",
		UserPANCard:      "e",
		UserAddressProof: "f",
	}
}

func TestApprovalLifecycle_NeverSkipsOrRegresses(t *testing.T) {
	fa := &fakeAdmin{m: organization.Manufacturer{ID: "m1"}}
	svc := NewService(nil, nil, 0)
	ctx := context.Background()

	review, err := svc.Review(ctx, fa, "m1")
	require.NoError(t, err)
	assert.Equal(t, organization.StatusPending, review.Manufacturer.Status)
	assert.True(t, review.Actions.CanAcknowledge)
	assert.False(t, review.Actions.CanApprove)

	_, err = svc.Approve(ctx, fa, "m1")
	require.Error(t, err, "PENDING cannot jump to APPROVED")
	assert.Equal(t, appErrors.KindConflict, appErrors.KindOf(err))
	assert.Zero(t, fa.approved)

	_, err = svc.Acknowledge(ctx, fa, "m1", "12345")
	require.Error(t, err)
	assert.Equal(t, "Password must be at least 6 characters", appErrors.Message(err))
	assert.Empty(t, fa.acknowledged)

	review, err = svc.Acknowledge(ctx, fa, "m1", "secret1")
	require.NoError(t, err)
	assert.Equal(t, organization.StatusAcknowledged, review.Manufacturer.Status)
	assert.Equal(t, []string{"secret1"}, fa.acknowledged)

	_, err = svc.Acknowledge(ctx, fa, "m1", "secret2")
	require.Error(t, err, "acknowledging twice would regress")
	assert.Len(t, fa.acknowledged, 1)

	_, err = svc.Approve(ctx, fa, "m1")
	require.Error(t, err)
	assert.Contains(t, appErrors.Message(err), "All documents must be uploaded before approval")
	assert.Zero(t, fa.approved)

	fa.m.Documents = completeDocuments()
	review, err = svc.Review(ctx, fa, "m1")
	require.NoError(t, err)
	assert.True(t, review.Actions.CanApprove)

	review, err = svc.Approve(ctx, fa, "m1")
	require.NoError(t, err)
	assert.Equal(t, organization.StatusApproved, review.Manufacturer.Status)
	assert.Empty(t, review.Next)

	_, err = svc.Approve(ctx, fa, "m1")
	assert.Error(t, err)
	_, err = svc.Acknowledge(ctx, fa, "m1", "secret3")
	assert.Error(t, err)
	assert.Equal(t, 1, fa.approved)
}

func TestApproval_UsesFreshStatus(t *testing.T) {
	fa := &fakeAdmin{m: organization.Manufacturer{ID: "m1", Status: organization.StatusApproved, Documents: completeDocuments()}}
	svc := NewService(nil, nil, 0)

	_, err := svc.Acknowledge(context.Background(), fa, "m1", "secret1")
	assert.Error(t, err)
	assert.Empty(t, fa.acknowledged)
}

func TestApproval_UnknownManufacturer(t *testing.T) {
	svc := NewService(nil, nil, 0)

	_, err := svc.Approve(context.Background(), &fakeAdmin{m: organization.Manufacturer{ID: "m1"}}, "m2")
	assert.Equal(t, appErrors.KindNotFound, appErrors.KindOf(err))

	_, err = svc.Approve(context.Background(), &fakeAdmin{}, " ")
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
}
