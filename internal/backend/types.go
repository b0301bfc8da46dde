package backend

import (
	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/domain/organization"
	"vltd-dashboard/internal/tokenstore"
)

// Credentials is the login form shared by every role.
type Credentials struct {
	Email    string `json:"email" label:"Email" validate:"required"`
	Password string `json:"password" label:"Password" validate:"required"`
}

// Account is the user object returned by a login or profile call.
type Account struct {
	ID     string                      `json:"id"`
	Name   string                      `json:"name"`
	Email  string                      `json:"email"`
	Role   string                      `json:"role"`
	Status organization.ApprovalStatus `json:"status,omitempty"`
}

type LoginResult struct {
	Role  tokenstore.Role `json:"role"`
	Token string          `json:"-"`
	User  Account         `json:"user"`
	// RequiresOnboarding is set for manufacturers that are not yet APPROVED.
	RequiresOnboarding bool `json:"requires_onboarding"`
}

// DeviceInput is a single inventory row for create or bulk upload.
type DeviceInput struct {
	IMEI           string `json:"imei" label:"IMEI" validate:"required,imei"`
	SerialNumber   string `json:"serial_number" label:"Serial number" validate:"required"`
	ModelCode      string `json:"model_code" label:"Model code" validate:"required"`
	ICCID          string `json:"iccid" label:"ICCID" validate:"required"`
	ESIM1          string `json:"esim_1"`
	ESIM1Provider  string `json:"esim_1_provider"`
	ESIM2          string `json:"esim_2"`
	ESIM2Provider  string `json:"esim_2_provider"`
	ManufacturerID string `json:"manufacturer_entity_id,omitempty"`
}

type BulkFailure struct {
	IMEI   string `json:"imei"`
	Reason string `json:"reason"`
}

type BulkUploadResult struct {
	Inserted int           `json:"inserted"`
	Failed   []BulkFailure `json:"failed"`
}

// AssignRequest moves a batch of devices to a distributor or an RFC.
type AssignRequest struct {
	EntityID string   `json:"entity_id"`
	IMEIs    []string `json:"imeis"`
}

type AssignResult struct {
	Assigned int           `json:"assigned"`
	Failed   []BulkFailure `json:"failed,omitempty"`
}

type Certificate struct {
	IMEI              string `json:"imei"`
	CertificateNumber string `json:"certificate_number"`
	URL               string `json:"url,omitempty"`
}

// DevicePage is one page of a device listing.
type DevicePage struct {
	Devices []device.Device `json:"devices"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
	Total   int             `json:"total"`
}

// UploadedDocument is the storage key the backend assigned to an upload.
type UploadedDocument struct {
	DocumentType organization.DocumentType `json:"documentType"`
	Key          string                    `json:"key"`
	URL          string                    `json:"url,omitempty"`
}
