// Package activation drives the device activation dialog: find a device by
// IMEI, resolve its owner, then bind a vehicle to it.
package activation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/domain/user"
	"vltd-dashboard/internal/inflight"
	"vltd-dashboard/internal/logger"
	"vltd-dashboard/internal/observability/metrics"
	appErrors "vltd-dashboard/pkg/errors"
	"vltd-dashboard/pkg/utils"
)

const (
	DefaultResetDelay = 2 * time.Second

	successNotice = "Device activated successfully"
)

// Backend is the slice of a role client the workflow needs. Both the RFC and
// the admin client satisfy it.
type Backend interface {
	SearchDevice(ctx context.Context, imei string) (*device.Device, error)
	FindUserByPhone(ctx context.Context, phone string) (*user.User, error)
	CreateUser(ctx context.Context, in user.NewUser) (*user.User, error)
	AssignVehicle(ctx context.Context, userID string, v device.Vehicle) (*device.Vehicle, error)
	AllDevices(ctx context.Context) ([]device.Device, error)
}

// Timer is the handle returned by AfterFunc.
type Timer interface {
	Stop() bool
}

type Options struct {
	Variant         Variant
	Backend         Backend
	Guard           *inflight.Guard
	ResetDelay      time.Duration
	DefaultPassword string
	// AfterFunc schedules the post-success reset. Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func()) Timer
	// OnDone runs after the post-success reset, once the dialog is finished.
	OnDone func(id string)
}

// Workflow is one activation dialog. Every step is single-flight: a call made
// while another step is running fails with ErrBusy and issues no request.
type Workflow struct {
	id      string
	variant Variant
	backend Backend
	guard   *inflight.Guard

	resetDelay      time.Duration
	defaultPassword string
	afterFunc       func(time.Duration, func()) Timer
	onDone          func(string)

	mu sync.Mutex
	// gen increments on every reset so results of abandoned steps are dropped.
	gen        uint64
	loading    Step
	resetTimer Timer

	state            State
	imei             string
	device           *device.Device
	existingOwner    *Owner
	user             *user.User
	lookupPhone      string
	userLookupMissed bool
	form             *VehicleForm
	vehicle          *device.Vehicle
	devices          []device.Device
	errMsg           string
	notice           string
}

func New(id string, opts Options) (*Workflow, error) {
	if opts.Backend == nil {
		return nil, errors.New("activation: backend is required")
	}
	if opts.Variant == "" {
		opts.Variant = VariantRFC
	}
	if _, ok := ParseVariant(string(opts.Variant)); !ok {
		return nil, fmt.Errorf("activation: unknown variant %q", opts.Variant)
	}
	if opts.Guard == nil {
		opts.Guard = inflight.New()
	}
	if opts.ResetDelay <= 0 {
		opts.ResetDelay = DefaultResetDelay
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}

	return &Workflow{
		id:              id,
		variant:         opts.Variant,
		backend:         opts.Backend,
		guard:           opts.Guard,
		resetDelay:      opts.ResetDelay,
		defaultPassword: opts.DefaultPassword,
		afterFunc:       opts.AfterFunc,
		onDone:          opts.OnDone,
		state:           StateSearch,
	}, nil
}

func (w *Workflow) ID() string { return w.id }

func (w *Workflow) Variant() Variant { return w.variant }

// Snapshot copies the current state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workflow) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:               w.id,
		Variant:          w.variant,
		State:            w.state,
		IMEI:             w.imei,
		LookupPhone:      w.lookupPhone,
		UserLookupMissed: w.userLookupMissed,
		Error:            w.errMsg,
		Notice:           w.notice,
		Loading:          w.loading,
	}
	if w.device != nil {
		d := *w.device
		s.Device = &d
	}
	if w.existingOwner != nil {
		o := *w.existingOwner
		s.ExistingOwner = &o
	}
	if w.user != nil {
		u := *w.user
		s.User = &u
	}
	if w.form != nil {
		f := *w.form
		s.Form = &f
	}
	if w.vehicle != nil {
		v := *w.vehicle
		s.Vehicle = &v
	}
	return s
}

// Devices is the device list fetched after the last successful activation.
func (w *Workflow) Devices() []device.Device {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]device.Device, len(w.devices))
	copy(out, w.devices)
	return out
}

// begin claims the workflow for step if the current state allows it.
func (w *Workflow) begin(step Step, allowed ...State) (uint64, error) {
	if w.loading != "" {
		return 0, appErrors.Conflict("WORKFLOW_BUSY", "Please wait for the current step to finish", appErrors.ErrBusy)
	}
	for _, s := range allowed {
		if w.state == s {
			w.loading = step
			return w.gen, nil
		}
	}
	return 0, appErrors.Conflict("INVALID_STEP", fmt.Sprintf("Cannot %s while in %s", strings.ReplaceAll(string(step), "_", " "), w.state), nil)
}

// finish releases the step. It reports false when the workflow was reset
// while the step was running; the caller must then discard its result.
func (w *Workflow) finish(gen uint64) bool {
	if gen != w.gen {
		return false
	}
	w.loading = ""
	return true
}

func (w *Workflow) fail(err error) error {
	w.errMsg = appErrors.Message(err)
	w.notice = ""
	return err
}

// failed records err before snapshotting so the returned state carries it.
func (w *Workflow) failed(err error) (Snapshot, error) {
	err = w.fail(err)
	return w.snapshotLocked(), err
}

func (w *Workflow) failValidation(msg string) error {
	return w.fail(appErrors.Validation(msg))
}

func abandoned() error {
	return appErrors.Conflict("WORKFLOW_RESET", "The dialog was reset", nil)
}

// Step 1: look up the device by exact IMEI

func (w *Workflow) Search(ctx context.Context, imei string) (Snapshot, error) {
	imei = utils.NormalizeIMEI(imei)

	w.mu.Lock()
	gen, err := w.begin(StepSearch, StateSearch, StateDeviceNotFound, StateAlreadyAssigned, StateDeviceFound)
	if err != nil {
		defer w.mu.Unlock()
		return w.snapshotLocked(), err
	}
	if imei == "" {
		w.loading = ""
		err = w.failValidation("IMEI is required")
		defer w.mu.Unlock()
		return w.snapshotLocked(), err
	}
	w.mu.Unlock()

	found, searchErr := w.backend.SearchDevice(ctx, imei)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.finish(gen) {
		return w.snapshotLocked(), abandoned()
	}

	w.imei = imei
	w.clearResolution()

	switch {
	case searchErr != nil && errors.Is(searchErr, device.ErrDeviceNotFound):
		w.state = StateDeviceNotFound
		return w.failed(searchErr)
	case searchErr != nil:
		w.state = StateSearch
		return w.failed(searchErr)
	case found.Vehicle != nil:
		w.state = StateAlreadyAssigned
		w.device = found
		w.existingOwner = &Owner{Name: found.Vehicle.OwnerName, Phone: found.Vehicle.OwnerPhone}
		msg := fmt.Sprintf("Device is already assigned to %s (%s)", strings.TrimSpace(found.Vehicle.OwnerName), found.Vehicle.OwnerPhone)
		return w.failed(appErrors.Conflict("ALREADY_ASSIGNED", msg, device.ErrAlreadyActivated))
	}

	w.state = StateDeviceFound
	w.device = found
	w.errMsg = ""

	logger.Debug("Activation device found",
		zap.String("dialog_id", w.id),
		zap.String("imei", imei),
		zap.String("assignment_status", string(device.AssignmentStatus(found))),
		zap.String("event", "activation_device_found"),
	)
	return w.snapshotLocked(), nil
}

// clearResolution drops everything resolved after the device.
func (w *Workflow) clearResolution() {
	w.device = nil
	w.existingOwner = nil
	w.user = nil
	w.lookupPhone = ""
	w.userLookupMissed = false
	w.form = nil
	w.vehicle = nil
	w.notice = ""
}

// Step 2a: resolve an existing user by phone. A miss is reported as an error
// and the operator must explicitly choose to create a new user.

func (w *Workflow) FindUser(ctx context.Context, phone string) (Snapshot, error) {
	phone = strings.TrimSpace(phone)

	w.mu.Lock()
	gen, err := w.begin(StepFindUser, StateDeviceFound)
	if err != nil {
		defer w.mu.Unlock()
		return w.snapshotLocked(), err
	}
	if phone == "" {
		w.loading = ""
		err = w.failValidation("Phone number is required")
		defer w.mu.Unlock()
		return w.snapshotLocked(), err
	}
	w.mu.Unlock()

	found, lookupErr := w.backend.FindUserByPhone(ctx, phone)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.finish(gen) {
		return w.snapshotLocked(), abandoned()
	}

	w.lookupPhone = phone
	if lookupErr != nil {
		if errors.Is(lookupErr, user.ErrUserNotFound) {
			w.userLookupMissed = true
			return w.failed(appErrors.NotFound(
				"USER_NOT_FOUND",
				`User not found. Choose "Create new user" to register this phone number.`,
				user.ErrUserNotFound,
			))
		}
		return w.failed(lookupErr)
	}

	w.resolveUser(found)
	return w.snapshotLocked(), nil
}

// Step 2b: create a new permit holder. First name, email and phone are
// checked locally in that order before anything is sent.

func (w *Workflow) CreateUser(ctx context.Context, in user.NewUser) (Snapshot, error) {
	in.Normalize()
	if in.Password == "" {
		in.Password = w.defaultPassword
	}

	w.mu.Lock()
	gen, err := w.begin(StepCreateUser, StateDeviceFound)
	if err != nil {
		defer w.mu.Unlock()
		return w.snapshotLocked(), err
	}
	if msg, ok := utils.FirstValidationMessage(&in); !ok {
		w.loading = ""
		err = w.failValidation(msg)
		defer w.mu.Unlock()
		return w.snapshotLocked(), err
	}
	w.mu.Unlock()

	created, createErr := w.backend.CreateUser(ctx, in)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.finish(gen) {
		return w.snapshotLocked(), abandoned()
	}
	if createErr != nil {
		return w.failed(createErr)
	}

	logger.Info("Permit holder created during activation",
		zap.String("dialog_id", w.id),
		zap.String("user_id", created.ID),
		zap.String("event", "activation_user_created"),
	)
	w.resolveUser(created)
	return w.snapshotLocked(), nil
}

func (w *Workflow) resolveUser(u *user.User) {
	w.user = u
	w.userLookupMissed = false
	form := newVehicleForm(w.variant, u)
	w.form = &form
	w.state = StateVehicleAssignment
	w.errMsg = ""
}

// Step 3: bind the vehicle. A nil form resubmits the last attempt unchanged.
func (w *Workflow) Submit(ctx context.Context, edits *VehicleForm) (Snapshot, error) {
	w.mu.Lock()
	gen, err := w.begin(StepSubmit, StateVehicleAssignment)
	if err != nil {
		defer w.mu.Unlock()
		return w.snapshotLocked(), err
	}

	form := *w.form
	if edits != nil {
		form = form.merge(*edits)
		w.form = &form
	}
	if msg, ok := utils.FirstValidationMessage(&form); !ok {
		w.loading = ""
		err = w.failValidation(msg)
		defer w.mu.Unlock()
		return w.snapshotLocked(), err
	}

	imei := w.device.IMEI
	userID := w.user.ID
	release, err := w.guard.Acquire("activate:" + imei)
	if err != nil {
		w.loading = ""
		err = w.fail(err)
		defer w.mu.Unlock()
		return w.snapshotLocked(), err
	}
	w.mu.Unlock()

	vehicle, assignErr := w.backend.AssignVehicle(ctx, userID, form.toVehicle(userID, imei))
	release()
	metrics.ActivationsTotal.WithLabelValues(string(w.variant), metrics.Result(assignErr)).Inc()

	var devices []device.Device
	var refreshErr error
	if assignErr == nil {
		devices, refreshErr = w.backend.AllDevices(ctx)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.finish(gen) {
		if assignErr == nil {
			logger.Warn("Activation completed after dialog was reset",
				zap.String("dialog_id", w.id),
				zap.String("imei", imei),
			)
		}
		return w.snapshotLocked(), abandoned()
	}
	if assignErr != nil {
		logger.Warn("Activation failed",
			zap.String("dialog_id", w.id),
			zap.String("imei", imei),
			zap.String("error", appErrors.Message(assignErr)),
		)
		return w.failed(assignErr)
	}

	if refreshErr != nil {
		logger.Warn("Device list refresh failed after activation",
			zap.String("dialog_id", w.id),
			zap.Error(refreshErr),
		)
	} else {
		w.devices = devices
	}

	w.vehicle = vehicle
	w.device.Vehicle = vehicle
	w.state = StateCompleted
	w.errMsg = ""
	w.notice = successNotice

	logger.Info("Device activated",
		zap.String("dialog_id", w.id),
		zap.String("variant", string(w.variant)),
		zap.String("imei", imei),
		zap.String("user_id", userID),
		zap.String("vehicle_number", form.VehicleNumber),
		zap.String("event", "device_activated"),
	)

	w.scheduleReset(w.gen)
	return w.snapshotLocked(), nil
}

func (w *Workflow) scheduleReset(gen uint64) {
	if w.resetTimer != nil {
		w.resetTimer.Stop()
	}
	w.resetTimer = w.afterFunc(w.resetDelay, func() {
		w.mu.Lock()
		done := w.gen == gen && w.state == StateCompleted
		if done {
			w.resetLocked()
		}
		w.mu.Unlock()

		if done && w.onDone != nil {
			w.onDone(w.id)
		}
	})
}

// Cancel abandons the dialog from any state. The result is indistinguishable
// from a fresh workflow.
func (w *Workflow) Cancel() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
	return w.snapshotLocked()
}

// Close stops any pending reset. The workflow must not be used afterwards.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
}

func (w *Workflow) resetLocked() {
	if w.resetTimer != nil {
		w.resetTimer.Stop()
		w.resetTimer = nil
	}
	w.gen++
	w.loading = ""
	w.state = StateSearch
	w.imei = ""
	w.clearResolution()
	w.devices = nil
	w.errMsg = ""
}
