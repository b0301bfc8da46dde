package activation

import (
	"strings"

	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/domain/user"
	"vltd-dashboard/internal/tokenstore"
)

// State is a step of the activation dialog.
type State string

const (
	StateSearch            State = "search"
	StateDeviceNotFound    State = "device_not_found"
	StateAlreadyAssigned   State = "already_assigned"
	StateDeviceFound       State = "device_found"
	StateVehicleAssignment State = "vehicle_assignment"
	StateCompleted         State = "completed"
)

// Step names the action currently in flight.
type Step string

const (
	StepSearch     Step = "search"
	StepFindUser   Step = "find_user"
	StepCreateUser Step = "create_user"
	StepSubmit     Step = "submit"
)

// Variant selects the backend role and defaults of a workflow.
type Variant string

const (
	VariantRFC   Variant = "rfc"
	VariantAdmin Variant = "admin"
)

const (
	DefaultFuelType    = "Petrol"
	DefaultVehicleType = "CAR"
	DefaultEntityType  = "Individual"
)

func ParseVariant(s string) (Variant, bool) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case VariantRFC:
		return VariantRFC, true
	case VariantAdmin, "super-admin":
		return VariantAdmin, true
	default:
		return "", false
	}
}

// DefaultPlan is the plan pre-selected on the vehicle form.
func (v Variant) DefaultPlan() string {
	if v == VariantAdmin {
		return "Premium"
	}
	return "Basic"
}

// Role is the token slot the variant's backend calls use.
func (v Variant) Role() tokenstore.Role {
	if v == VariantAdmin {
		return tokenstore.RoleAdmin
	}
	return tokenstore.RoleRFC
}

// VehicleForm is the last data-entry step. Owner fields are pre-filled from
// the resolved user and may be edited.
type VehicleForm struct {
	VehicleNumber  string `json:"vehicle_number" label:"Vehicle number" validate:"required"`
	ChassisNumber  string `json:"chassis_number" label:"Chassis number" validate:"required"`
	OwnerName      string `json:"owner_name"`
	OwnerEmail     string `json:"owner_email"`
	OwnerPhone     string `json:"owner_phone"`
	OwnerAddress   string `json:"owner_address"`
	EngineNumber   string `json:"engine_number"`
	Make           string `json:"make"`
	Model          string `json:"model"`
	VehicleType    string `json:"vehicle_type"`
	FuelType       string `json:"fuel_type"`
	EntityType     string `json:"entity_type"`
	RCRegisteredTo string `json:"rc_registered_name"`
	PlanName       string `json:"plan_name"`
}

func newVehicleForm(v Variant, u *user.User) VehicleForm {
	f := VehicleForm{
		VehicleType: DefaultVehicleType,
		FuelType:    DefaultFuelType,
		EntityType:  DefaultEntityType,
		PlanName:    v.DefaultPlan(),
	}
	if u != nil {
		f.OwnerName = u.FullName()
		f.OwnerEmail = u.Email
		f.OwnerPhone = u.Phone
		f.OwnerAddress = u.Address
	}
	return f
}

// merge overlays the operator's edits on the pre-filled form. Blank fields
// keep the pre-filled value.
func (f VehicleForm) merge(edits VehicleForm) VehicleForm {
	pick := func(edit, current string) string {
		if strings.TrimSpace(edit) == "" {
			return current
		}
		return edit
	}
	trimmed := func(edit, current string) string {
		if s := strings.TrimSpace(edit); s != "" {
			return s
		}
		return current
	}

	return VehicleForm{
		VehicleNumber:  trimmed(edits.VehicleNumber, f.VehicleNumber),
		ChassisNumber:  trimmed(edits.ChassisNumber, f.ChassisNumber),
		OwnerName:      pick(edits.OwnerName, f.OwnerName),
		OwnerEmail:     trimmed(edits.OwnerEmail, f.OwnerEmail),
		OwnerPhone:     trimmed(edits.OwnerPhone, f.OwnerPhone),
		OwnerAddress:   pick(edits.OwnerAddress, f.OwnerAddress),
		EngineNumber:   trimmed(edits.EngineNumber, f.EngineNumber),
		Make:           trimmed(edits.Make, f.Make),
		Model:          trimmed(edits.Model, f.Model),
		VehicleType:    trimmed(edits.VehicleType, f.VehicleType),
		FuelType:       trimmed(edits.FuelType, f.FuelType),
		EntityType:     trimmed(edits.EntityType, f.EntityType),
		RCRegisteredTo: trimmed(edits.RCRegisteredTo, f.RCRegisteredTo),
		PlanName:       trimmed(edits.PlanName, f.PlanName),
	}
}

func (f VehicleForm) toVehicle(userID, imei string) device.Vehicle {
	return device.Vehicle{
		UserID:         userID,
		DeviceIMEI:     imei,
		OwnerName:      f.OwnerName,
		OwnerEmail:     f.OwnerEmail,
		OwnerPhone:     f.OwnerPhone,
		OwnerAddress:   f.OwnerAddress,
		VehicleNumber:  f.VehicleNumber,
		ChassisNumber:  f.ChassisNumber,
		EngineNumber:   f.EngineNumber,
		Make:           f.Make,
		Model:          f.Model,
		VehicleType:    f.VehicleType,
		FuelType:       f.FuelType,
		EntityType:     f.EntityType,
		RCRegisteredTo: f.RCRegisteredTo,
		PlanName:       f.PlanName,
	}
}

// Owner identifies who a device is already activated to.
type Owner struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Snapshot is a read-only copy of a workflow for rendering.
type Snapshot struct {
	ID               string          `json:"id"`
	Variant          Variant         `json:"variant"`
	State            State           `json:"state"`
	IMEI             string          `json:"imei"`
	Device           *device.Device  `json:"device,omitempty"`
	ExistingOwner    *Owner          `json:"existing_owner,omitempty"`
	User             *user.User      `json:"user,omitempty"`
	LookupPhone      string          `json:"lookup_phone,omitempty"`
	UserLookupMissed bool            `json:"user_lookup_missed"`
	Form             *VehicleForm    `json:"form,omitempty"`
	Vehicle          *device.Vehicle `json:"vehicle,omitempty"`
	Error            string          `json:"error,omitempty"`
	Notice           string          `json:"notice,omitempty"`
	Loading          Step            `json:"loading,omitempty"`
}
