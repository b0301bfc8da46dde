package export

import (
	"strconv"
	"time"

	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/domain/organization"
	"vltd-dashboard/internal/domain/user"
)

const dateLayout = "2006-01-02 15:04"

func Devices(devices []device.Device) Table {
	t := Table{Headers: []string{
		"IMEI", "Serial Number", "Model Code", "ICCID",
		"eSIM 1", "eSIM 1 Provider", "eSIM 2", "eSIM 2 Provider",
		"Certificate Number", "Status", "Manufacturer", "Distributor", "RFC",
		"Vehicle Number", "Owner Name", "Owner Phone", "Created At",
	}}
	for i := range devices {
		d := &devices[i]
		var vehicleNumber, ownerName, ownerPhone string
		if d.Vehicle != nil {
			vehicleNumber = d.Vehicle.VehicleNumber
			ownerName = d.Vehicle.OwnerName
			ownerPhone = d.Vehicle.OwnerPhone
		}
		t.Rows = append(t.Rows, []string{
			d.IMEI, d.SerialNumber, d.ModelCode, d.ICCID,
			d.ESIM1, d.ESIM1Provider, d.ESIM2, d.ESIM2Provider,
			deref(d.CertificateNumber),
			device.AssignmentStatus(d).Label(),
			nameOr(d.ManufacturerName, d.ManufacturerID),
			nameOr(d.DistributorName, d.DistributorID),
			nameOr(d.RFCName, d.RFCID),
			vehicleNumber, ownerName, ownerPhone,
			formatTime(d.CreatedAt),
		})
	}
	return t
}

func RFCs(rfcs []organization.RFC) Table {
	t := Table{Headers: []string{"Name", "Email", "Phone", "Address", "Created At"}}
	for _, r := range rfcs {
		t.Rows = append(t.Rows, []string{r.Name, r.Email, r.Phone, r.Address, formatTime(r.CreatedAt)})
	}
	return t
}

func Distributors(distributors []organization.Distributor) Table {
	t := Table{Headers: []string{"Name", "Email", "Phone", "Address", "Created At"}}
	for _, d := range distributors {
		t.Rows = append(t.Rows, []string{d.Name, d.Email, d.Phone, d.Address, formatTime(d.CreatedAt)})
	}
	return t
}

func Users(users []user.User) Table {
	t := Table{Headers: []string{"First Name", "Last Name", "Email", "Phone", "District", "State", "Permit Holder Type", "Vehicles"}}
	for _, u := range users {
		t.Rows = append(t.Rows, []string{u.FirstName, u.LastName, u.Email, u.Phone, u.District, u.State, u.PermitHolderType, strconv.Itoa(u.VehicleCount)})
	}
	return t
}

func Manufacturers(manufacturers []organization.Manufacturer) Table {
	t := Table{Headers: []string{"Name", "Email", "Phone", "Status", "Documents Missing", "Created At"}}
	for i := range manufacturers {
		m := &manufacturers[i]
		t.Rows = append(t.Rows, []string{m.Name, m.Email, m.Phone, string(m.Status), strconv.Itoa(len(m.Documents.Missing())), formatTime(m.CreatedAt)})
	}
	return t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nameOr(name string, id *string) string {
	if name != "" {
		return name
	}
	return deref(id)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
