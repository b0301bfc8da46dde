package backend

import (
	"context"

	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/domain/user"
	"vltd-dashboard/internal/tokenstore"
)

// RFCAPI is the RFC role's view of the backend.
type RFCAPI struct {
	c *Client
}

const roleRFC = tokenstore.RoleRFC

func (r *RFCAPI) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	return r.c.login(ctx, roleRFC, "/rfc/signin", creds)
}

func (r *RFCAPI) Logout() {
	r.c.logout(roleRFC)
}

func (r *RFCAPI) Devices(ctx context.Context, p PageRequest) ([]device.Device, error) {
	return r.c.listDevices(ctx, roleRFC, "/rfc/devices", r.c.pageQuery(p))
}

func (r *RFCAPI) AllDevices(ctx context.Context) ([]device.Device, error) {
	return collectAll(ctx, r.c, r.Devices)
}

func (r *RFCAPI) SearchDevice(ctx context.Context, imei string) (*device.Device, error) {
	return r.c.searchDevice(ctx, roleRFC, "/rfc/devices/search", imei)
}

func (r *RFCAPI) FindUserByPhone(ctx context.Context, phone string) (*user.User, error) {
	return r.c.findUserByPhone(ctx, roleRFC, "/rfc/users/search", phone)
}

func (r *RFCAPI) CreateUser(ctx context.Context, in user.NewUser) (*user.User, error) {
	return r.c.createUser(ctx, roleRFC, "/rfc/users", in)
}

// AssignVehicle binds v.DeviceIMEI to the user and creates the vehicle.
func (r *RFCAPI) AssignVehicle(ctx context.Context, userID string, v device.Vehicle) (*device.Vehicle, error) {
	return r.c.assignVehicle(ctx, roleRFC, "/rfc/vehicles/", userID, v)
}

func (r *RFCAPI) Locations(ctx context.Context) ([]device.Location, error) {
	return r.c.locations(ctx, roleRFC, "/rfc/devices/locations")
}
