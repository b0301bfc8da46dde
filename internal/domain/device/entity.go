package device

import (
	"time"
)

// Device is a VLTD unit as the backend reports it. The three entity ids and
// Vehicle are the assignment edges; status is derived from them, never stored.
type Device struct {
	ID                string     `json:"id"`
	IMEI              string     `json:"imei"`
	SerialNumber      string     `json:"serial_number"`
	ModelCode         string     `json:"model_code"`
	ICCID             string     `json:"iccid"`
	ESIM1             string     `json:"esim_1"`
	ESIM1Provider     string     `json:"esim_1_provider"`
	ESIM2             string     `json:"esim_2"`
	ESIM2Provider     string     `json:"esim_2_provider"`
	CertificateNumber *string    `json:"certificate_number"`
	ManufacturerID    *string    `json:"manufacturer_entity_id"`
	DistributorID     *string    `json:"distributor_entity_id"`
	RFCID             *string    `json:"rfc_entity_id"`
	Vehicle           *Vehicle   `json:"vehicle"`
	CreatedAt         *time.Time `json:"created_at"`
	ManufacturerName  string     `json:"manufacturer_name,omitempty"`
	DistributorName   string     `json:"distributor_name,omitempty"`
	RFCName           string     `json:"rfc_name,omitempty"`
}

// Vehicle is created once per device as the last step of activation.
type Vehicle struct {
	ID             string     `json:"id,omitempty"`
	UserID         string     `json:"user_id,omitempty"`
	DeviceIMEI     string     `json:"device_imei,omitempty"`
	OwnerName      string     `json:"owner_name"`
	OwnerEmail     string     `json:"owner_email"`
	OwnerPhone     string     `json:"owner_phone"`
	OwnerAddress   string     `json:"owner_address"`
	VehicleNumber  string     `json:"vehicle_number"`
	ChassisNumber  string     `json:"chassis_number"`
	EngineNumber   string     `json:"engine_number"`
	Make           string     `json:"make"`
	Model          string     `json:"model"`
	VehicleType    string     `json:"vehicle_type"`
	FuelType       string     `json:"fuel_type"`
	EntityType     string     `json:"entity_type"`
	RCRegisteredTo string     `json:"rc_registered_name"`
	PlanName       string     `json:"plan_name"`
	PlanYears      int        `json:"plan_years,omitempty"`
	ValidTill      *time.Time `json:"valid_till,omitempty"`
}

// Location is one live position report used by the map views.
type Location struct {
	IMEI          string     `json:"imei"`
	Latitude      float64    `json:"latitude"`
	Longitude     float64    `json:"longitude"`
	Speed         float64    `json:"speed"`
	Ignition      bool       `json:"ignition"`
	VehicleNumber string     `json:"vehicle_number,omitempty"`
	RecordedAt    *time.Time `json:"recorded_at,omitempty"`
}

// Status is the derived position of a device in the supply chain.
type Status string

const (
	StatusUnassigned            Status = "unassigned"
	StatusAssignedToDistributor Status = "assigned_to_distributor"
	StatusAssignedToRFC         Status = "assigned_to_rfc"
	StatusActivated             Status = "activated"
)

// AssignmentStatus is the single place the device status is derived.
func AssignmentStatus(d *Device) Status {
	switch {
	case d == nil:
		return StatusUnassigned
	case d.Vehicle != nil:
		return StatusActivated
	case set(d.RFCID):
		return StatusAssignedToRFC
	case set(d.DistributorID):
		return StatusAssignedToDistributor
	default:
		return StatusUnassigned
	}
}

// IsAssigned is what the distributor and RFC list views show as "Assigned".
func IsAssigned(d *Device) bool {
	return AssignmentStatus(d) != StatusUnassigned
}

// Label is the human text shown in tables and exports.
func (s Status) Label() string {
	switch s {
	case StatusActivated:
		return "Activated"
	case StatusAssignedToRFC:
		return "Assigned to RFC"
	case StatusAssignedToDistributor:
		return "Assigned to Distributor"
	default:
		return "Unassigned"
	}
}

func set(id *string) bool {
	return id != nil && *id != ""
}
