package assignment

import "vltd-dashboard/internal/domain/device"

// Summary counts devices per derived status for the dashboard cards.
type Summary struct {
	Total                 int `json:"total"`
	Unassigned            int `json:"unassigned"`
	AssignedToDistributor int `json:"assigned_to_distributor"`
	AssignedToRFC         int `json:"assigned_to_rfc"`
	Activated             int `json:"activated"`
	Certified             int `json:"certified"`
}

func Summarize(devices []device.Device) Summary {
	var s Summary
	for i := range devices {
		d := &devices[i]
		s.Total++
		switch device.AssignmentStatus(d) {
		case device.StatusActivated:
			s.Activated++
		case device.StatusAssignedToRFC:
			s.AssignedToRFC++
		case device.StatusAssignedToDistributor:
			s.AssignedToDistributor++
		default:
			s.Unassigned++
		}
		if d.CertificateNumber != nil && *d.CertificateNumber != "" {
			s.Certified++
		}
	}
	return s
}

// Filter keeps devices whose derived status is one of statuses. No statuses
// keeps everything.
func Filter(devices []device.Device, statuses ...device.Status) []device.Device {
	if len(statuses) == 0 {
		return devices
	}
	want := make(map[device.Status]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	out := make([]device.Device, 0, len(devices))
	for i := range devices {
		if want[device.AssignmentStatus(&devices[i])] {
			out = append(out, devices[i])
		}
	}
	return out
}
