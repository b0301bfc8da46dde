package organization

import (
	"time"
)

// ApprovalStatus is the manufacturer onboarding state.
type ApprovalStatus string

const (
	StatusPending      ApprovalStatus = "PENDING"
	StatusAcknowledged ApprovalStatus = "ACKNOWLEDGED"
	StatusApproved     ApprovalStatus = "APPROVED"
)

// DocumentType names one of the six onboarding document slots.
type DocumentType string

const (
	DocGST              DocumentType = "gst_certificate"
	DocBalanceSheet     DocumentType = "balance_sheet"
	DocAddressProof     DocumentType = "address_proof"
	DocPAN              DocumentType = "pan_card"
	DocUserPAN          DocumentType = "user_pan_card"
	DocUserAddressProof DocumentType = "user_address_proof"
)

// RequiredDocuments is every slot that must be filled before approval, in
// display order.
var RequiredDocuments = []DocumentType{
	DocGST,
	DocBalanceSheet,
	DocAddressProof,
	DocPAN,
	DocUserPAN,
	DocUserAddressProof,
}

func (d DocumentType) Valid() bool {
	for _, known := range RequiredDocuments {
		if d == known {
			return true
		}
	}
	return false
}

// Documents holds the uploaded document URL per slot.
type Documents struct {
	GSTCertificate   string `json:"gst_certificate_url"`
	BalanceSheet     string `json:"balance_sheet_url"`
	AddressProof     string `json:"address_proof_url"`
	PANCard          string `json:"pan_card_url"`
	UserPANCard      string `json:"user_pan_card_url"`
	UserAddressProof string `json:"user_address_proof_url"`
}

// URL returns the stored URL for a slot.
func (d *Documents) URL(t DocumentType) string {
	switch t {
	case DocGST:
		return d.GSTCertificate
	case DocBalanceSheet:
		return d.BalanceSheet
	case DocAddressProof:
		return d.AddressProof
	case DocPAN:
		return d.PANCard
	case DocUserPAN:
		return d.UserPANCard
	case DocUserAddressProof:
		return d.UserAddressProof
	}
	return ""
}

// Missing lists the empty slots in display order.
func (d *Documents) Missing() []DocumentType {
	var missing []DocumentType
	for _, t := range RequiredDocuments {
		if d.URL(t) == "" {
			missing = append(missing, t)
		}
	}
	return missing
}

// Complete reports whether all six slots are populated.
func (d *Documents) Complete() bool {
	return len(d.Missing()) == 0
}

type Manufacturer struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone,omitempty"`
	Status    ApprovalStatus `json:"status"`
	Documents Documents      `json:"documents"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
}

type Distributor struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone,omitempty"`
	Address   string     `json:"address,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type RFC struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	Address       string     `json:"address,omitempty"`
	DistributorID *string    `json:"distributor_entity_id,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// NewEntity is the create payload shared by distributors and RFCs.
type NewEntity struct {
	Name     string `json:"name" label:"Name" validate:"required"`
	Email    string `json:"email" label:"Email" validate:"required,email"`
	Phone    string `json:"phone" label:"Phone" validate:"omitempty,phone"`
	Address  string `json:"address"`
	Password string `json:"password" label:"Password" validate:"required,min=6"`
}
