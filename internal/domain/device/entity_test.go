package device

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func TestAssignmentStatus(t *testing.T) {
	tests := []struct {
		name   string
		device *Device
		want   Status
	}{
		{"nil device", nil, StatusUnassigned},
		{"fresh inventory", &Device{IMEI: "1", ManufacturerID: ptr("m1")}, StatusUnassigned},
		{"empty distributor id", &Device{DistributorID: ptr("")}, StatusUnassigned},
		{"distributor", &Device{DistributorID: ptr("d1")}, StatusAssignedToDistributor},
		{"rfc", &Device{DistributorID: ptr("d1"), RFCID: ptr("r1")}, StatusAssignedToRFC},
		{"rfc without distributor", &Device{RFCID: ptr("r1")}, StatusAssignedToRFC},
		{"vehicle wins", &Device{RFCID: ptr("r1"), Vehicle: &Vehicle{VehicleNumber: "WB24BG4434"}}, StatusActivated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssignmentStatus(tt.device))
			assert.Equal(t, tt.want != StatusUnassigned, IsAssigned(tt.device))
		})
	}
}

func TestValidateTransition(t *testing.T) {
	fresh := &Device{}
	atDistributor := &Device{DistributorID: ptr("d1")}
	atRFC := &Device{DistributorID: ptr("d1"), RFCID: ptr("r1")}
	activated := &Device{RFCID: ptr("r1"), Vehicle: &Vehicle{}}

	assert.NoError(t, ValidateTransition(fresh, StatusAssignedToDistributor))
	assert.NoError(t, ValidateTransition(atDistributor, StatusAssignedToRFC))
	assert.NoError(t, ValidateTransition(atRFC, StatusActivated))

	err := ValidateTransition(fresh, StatusAssignedToRFC)
	assert.True(t, errors.Is(err, ErrInvalidStatusTransition))
	assert.Contains(t, err.Error(), "Unassigned cannot move to Assigned to RFC")

	assert.Error(t, ValidateTransition(atRFC, StatusAssignedToDistributor))
	assert.Error(t, ValidateTransition(activated, StatusActivated))
	assert.Empty(t, AllowedTransitions(activated))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Activated", StatusActivated.Label())
	assert.Equal(t, "Unassigned", Status("").Label())
}
