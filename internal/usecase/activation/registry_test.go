package activation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/domain/user"
	appErrors "vltd-dashboard/pkg/errors"
)

func TestRegistry_Lifecycle(t *testing.T) {
	fb := newFakeBackend()
	var variants []Variant
	r := NewRegistry(func(v Variant) (Options, error) {
		variants = append(variants, v)
		return Options{Backend: fb}, nil
	})

	w, err := r.Open("super-admin")
	require.NoError(t, err)
	assert.Equal(t, VariantAdmin, w.Variant())
	assert.Equal(t, []Variant{VariantAdmin}, variants)

	got, err := r.Get(w.ID())
	require.NoError(t, err)
	assert.Same(t, w, got)
	assert.Equal(t, 1, r.Len())

	assert.True(t, r.Close(w.ID()))
	assert.False(t, r.Close(w.ID()))

	_, err = r.Get(w.ID())
	assert.Equal(t, appErrors.KindNotFound, appErrors.KindOf(err))
}

func TestRegistry_RejectsUnknownVariant(t *testing.T) {
	r := NewRegistry(func(v Variant) (Options, error) { return Options{Backend: newFakeBackend()}, nil })

	_, err := r.Open("distributor")
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
}

func TestRegistry_FactoryError(t *testing.T) {
	boom := errors.New("not logged in")
	r := NewRegistry(func(v Variant) (Options, error) { return Options{}, boom })

	_, err := r.Open(VariantRFC)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Limit(t *testing.T) {
	r := NewRegistry(func(v Variant) (Options, error) { return Options{Backend: newFakeBackend()}, nil })
	for i := 0; i < MaxOpenDialogs; i++ {
		_, err := r.Open(VariantRFC)
		require.NoError(t, err)
	}

	_, err := r.Open(VariantRFC)
	assert.Equal(t, appErrors.KindConflict, appErrors.KindOf(err))

	r.CloseAll()
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_CompletedDialogClosesAfterReset(t *testing.T) {
	fb := newFakeBackend()
	fb.devices[testIMEI] = &device.Device{IMEI: testIMEI}
	fb.users[testPhone] = &user.User{ID: "u1", FirstName: "Asha", Phone: testPhone}
	timers := &timerRecorder{}
	r := NewRegistry(func(v Variant) (Options, error) {
		return Options{Backend: fb, AfterFunc: timers.AfterFunc}, nil
	})
	ctx := context.Background()

	w, err := r.Open(VariantRFC)
	require.NoError(t, err)
	_, err = w.Search(ctx, testIMEI)
	require.NoError(t, err)
	_, err = w.FindUser(ctx, testPhone)
	require.NoError(t, err)
	_, err = w.Submit(ctx, &VehicleForm{VehicleNumber: "WB24BG4434", ChassisNumber: "CH12345"})
	require.NoError(t, err)

	got, err := r.Get(w.ID())
	require.NoError(t, err, "the success notice stays readable until the reset")
	assert.Equal(t, StateCompleted, got.Snapshot().State)

	timers.last().fire()
	assert.Equal(t, 0, r.Len())
	_, err = r.Get(w.ID())
	assert.Equal(t, appErrors.KindNotFound, appErrors.KindOf(err))
}

func TestRegistry_CancelledDialogStaysOpen(t *testing.T) {
	fb := newFakeBackend()
	fb.devices[testIMEI] = &device.Device{IMEI: testIMEI}
	fb.users[testPhone] = &user.User{ID: "u1", FirstName: "Asha", Phone: testPhone}
	timers := &timerRecorder{}
	r := NewRegistry(func(v Variant) (Options, error) {
		return Options{Backend: fb, AfterFunc: timers.AfterFunc}, nil
	})
	ctx := context.Background()

	w, err := r.Open(VariantRFC)
	require.NoError(t, err)
	_, _ = w.Search(ctx, testIMEI)
	_, _ = w.FindUser(ctx, testPhone)
	_, err = w.Submit(ctx, &VehicleForm{VehicleNumber: "WB24BG4434", ChassisNumber: "CH12345"})
	require.NoError(t, err)

	w.Cancel()
	timers.last().fire()
	assert.Equal(t, 1, r.Len())
}
