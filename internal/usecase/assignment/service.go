// Package assignment moves devices down the custody chain
// manufacturer → distributor → RFC.
package assignment

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"vltd-dashboard/internal/backend"
	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/inflight"
	"vltd-dashboard/internal/logger"
	appErrors "vltd-dashboard/pkg/errors"
	"vltd-dashboard/pkg/utils"
)

type ManufacturerBackend interface {
	AllInventory(ctx context.Context) ([]device.Device, error)
	AssignToDistributor(ctx context.Context, req backend.AssignRequest) (*backend.AssignResult, error)
}

type DistributorBackend interface {
	AllInventory(ctx context.Context) ([]device.Device, error)
	AssignToRFC(ctx context.Context, req backend.AssignRequest) (*backend.AssignResult, error)
}

// Service is shared by every session so its guard covers concurrent
// operators in this process.
type Service struct {
	guard *inflight.Guard
}

func NewService(guard *inflight.Guard) *Service {
	if guard == nil {
		guard = inflight.New()
	}
	return &Service{guard: guard}
}

// ToDistributor assigns unassigned manufacturer stock to a distributor.
func (s *Service) ToDistributor(ctx context.Context, m ManufacturerBackend, distributorID string, imeis []string) (*backend.AssignResult, error) {
	return s.assign(ctx, edge{
		name:   "distributor",
		label:  "a distributor",
		target: device.StatusAssignedToDistributor,
		list:   m.AllInventory,
		send:   m.AssignToDistributor,
	}, distributorID, imeis)
}

// ToRFC hands distributor stock to an RFC.
func (s *Service) ToRFC(ctx context.Context, d DistributorBackend, rfcID string, imeis []string) (*backend.AssignResult, error) {
	return s.assign(ctx, edge{
		name:   "rfc",
		label:  "an RFC",
		target: device.StatusAssignedToRFC,
		list:   d.AllInventory,
		send:   d.AssignToRFC,
	}, rfcID, imeis)
}

type edge struct {
	name   string
	label  string
	target device.Status
	list   func(context.Context) ([]device.Device, error)
	send   func(context.Context, backend.AssignRequest) (*backend.AssignResult, error)
}

func (s *Service) assign(ctx context.Context, e edge, entityID string, imeis []string) (*backend.AssignResult, error) {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return nil, appErrors.Validation(fmt.Sprintf("Select %s to assign to", e.label))
	}
	imeis = normalizeIMEIs(imeis)
	if len(imeis) == 0 {
		return nil, appErrors.Validation("Select at least one device")
	}

	inventory, err := e.list(ctx)
	if err != nil {
		return nil, err
	}
	if err := CheckTransitions(inventory, imeis, e.target); err != nil {
		return nil, err
	}

	keys := make([]string, len(imeis))
	for i, imei := range imeis {
		keys[i] = "assign:imei:" + imei
	}
	release, err := s.guard.AcquireAll(keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := e.send(ctx, backend.AssignRequest{EntityID: entityID, IMEIs: imeis})
	if err != nil {
		return nil, err
	}

	logger.Info("Devices assigned",
		zap.String("edge", e.name),
		zap.String("entity_id", entityID),
		zap.Int("requested", len(imeis)),
		zap.Int("assigned", result.Assigned),
		zap.Int("failed", len(result.Failed)),
		zap.String("event", "devices_assigned"),
	)
	return result, nil
}

// CheckTransitions verifies every IMEI is held in inventory and may move to
// target. Only the first problem is reported.
func CheckTransitions(inventory []device.Device, imeis []string, target device.Status) error {
	byIMEI := make(map[string]*device.Device, len(inventory))
	for i := range inventory {
		byIMEI[inventory[i].IMEI] = &inventory[i]
	}

	for _, imei := range imeis {
		d, ok := byIMEI[imei]
		if !ok {
			return appErrors.NotFound("DEVICE_NOT_IN_CUSTODY", fmt.Sprintf("Device %s is not in your inventory", imei), device.ErrNotInCustody)
		}
		if err := device.ValidateTransition(d, target); err != nil {
			current := device.AssignmentStatus(d)
			return appErrors.Conflict(
				"INVALID_TRANSITION",
				fmt.Sprintf("Device %s is %s and cannot be %s", imei, strings.ToLower(current.Label()), strings.ToLower(target.Label())),
				err,
			)
		}
	}
	return nil
}

func normalizeIMEIs(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		imei := utils.NormalizeIMEI(raw)
		if imei == "" {
			continue
		}
		if _, dup := seen[imei]; dup {
			continue
		}
		seen[imei] = struct{}{}
		out = append(out, imei)
	}
	return out
}
