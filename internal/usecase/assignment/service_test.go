package assignment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vltd-dashboard/internal/backend"
	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/inflight"
	appErrors "vltd-dashboard/pkg/errors"
)

func strPtr(s string) *string { return &s }

type fakeChain struct {
	inventory []device.Device
	requests  []backend.AssignRequest
	onAssign  func()
}

func (f *fakeChain) AllInventory(ctx context.Context) ([]device.Device, error) {
	return f.inventory, nil
}

func (f *fakeChain) record(req backend.AssignRequest) (*backend.AssignResult, error) {
	f.requests = append(f.requests, req)
	if f.onAssign != nil {
		f.onAssign()
	}
	return &backend.AssignResult{Assigned: len(req.IMEIs)}, nil
}

func (f *fakeChain) AssignToDistributor(ctx context.Context, req backend.AssignRequest) (*backend.AssignResult, error) {
	return f.record(req)
}

func (f *fakeChain) AssignToRFC(ctx context.Context, req backend.AssignRequest) (*backend.AssignResult, error) {
	return f.record(req)
}

func TestToDistributor(t *testing.T) {
	fc := &fakeChain{inventory: []device.Device{
		{IMEI: "111"},
		{IMEI: "222"},
		{IMEI: "333", DistributorID: strPtr("d1")},
	}}
	svc := NewService(nil)

	res, err := svc.ToDistributor(context.Background(), fc, " d9 ", []string{" 111", "222", "111", ""})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Assigned)
	require.Len(t, fc.requests, 1)
	assert.Equal(t, backend.AssignRequest{EntityID: "d9", IMEIs: []string{"111", "222"}}, fc.requests[0])
}

func TestToDistributor_RejectsOutOfOrderEdges(t *testing.T) {
	fc := &fakeChain{inventory: []device.Device{
		{IMEI: "111"},
		{IMEI: "333", DistributorID: strPtr("d1")},
	}}
	svc := NewService(nil)

	_, err := svc.ToDistributor(context.Background(), fc, "d9", []string{"111", "333"})
	require.Error(t, err)
	assert.Equal(t, appErrors.KindConflict, appErrors.KindOf(err))
	assert.ErrorIs(t, err, device.ErrInvalidStatusTransition)
	assert.Equal(t, "Device 333 is assigned to distributor and cannot be assigned to distributor", appErrors.Message(err))

	_, err = svc.ToDistributor(context.Background(), fc, "d9", []string{"999"})
	assert.ErrorIs(t, err, device.ErrNotInCustody)

	assert.Empty(t, fc.requests)
}

func TestToRFC(t *testing.T) {
	fc := &fakeChain{inventory: []device.Device{
		{IMEI: "111", DistributorID: strPtr("d1")},
		{IMEI: "222"},
		{IMEI: "333", DistributorID: strPtr("d1"), RFCID: strPtr("r1")},
	}}
	svc := NewService(nil)

	_, err := svc.ToRFC(context.Background(), fc, "r2", []string{"111"})
	require.NoError(t, err)

	_, err = svc.ToRFC(context.Background(), fc, "r2", []string{"222"})
	assert.ErrorIs(t, err, device.ErrInvalidStatusTransition)

	_, err = svc.ToRFC(context.Background(), fc, "r2", []string{"333"})
	assert.ErrorIs(t, err, device.ErrInvalidStatusTransition)

	assert.Len(t, fc.requests, 1)
}

func TestAssign_LocalValidation(t *testing.T) {
	fc := &fakeChain{}
	svc := NewService(nil)

	_, err := svc.ToRFC(context.Background(), fc, " ", []string{"1"})
	assert.Equal(t, "Select an RFC to assign to", appErrors.Message(err))

	_, err = svc.ToRFC(context.Background(), fc, "r1", []string{" ", ""})
	assert.Equal(t, "Select at least one device", appErrors.Message(err))
}

func TestAssign_OverlappingBatchesAreRejected(t *testing.T) {
	guard := inflight.New()
	svc := NewService(guard)
	fc := &fakeChain{inventory: []device.Device{{IMEI: "111"}, {IMEI: "222"}}}

	var nestedErr error
	fc.onAssign = func() {
		fc.onAssign = nil
		_, nestedErr = svc.ToDistributor(context.Background(), fc, "d2", []string{"222"})
	}

	_, err := svc.ToDistributor(context.Background(), fc, "d1", []string{"111", "222"})
	require.NoError(t, err)
	assert.ErrorIs(t, nestedErr, appErrors.ErrInFlight)
	assert.False(t, guard.Busy("assign:imei:111"))
	assert.Len(t, fc.requests, 1)
}

func TestSummarizeAndFilter(t *testing.T) {
	devices := []device.Device{
		{IMEI: "1"},
		{IMEI: "2", DistributorID: strPtr("d")},
		{IMEI: "3", DistributorID: strPtr("d"), RFCID: strPtr("r"), CertificateNumber: strPtr("C-1")},
		{IMEI: "4", RFCID: strPtr("r"), Vehicle: &device.Vehicle{VehicleNumber: "WB24BG4434"}},
	}

	assert.Equal(t, Summary{
		Total:                 4,
		Unassigned:            1,
		AssignedToDistributor: 1,
		AssignedToRFC:         1,
		Activated:             1,
		Certified:             1,
	}, Summarize(devices))

	got := Filter(devices, device.StatusAssignedToRFC, device.StatusActivated)
	require.Len(t, got, 2)
	assert.Equal(t, "3", got[0].IMEI)
	assert.Equal(t, "4", got[1].IMEI)
	assert.Len(t, Filter(devices), 4)
}
