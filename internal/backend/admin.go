package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/domain/organization"
	"vltd-dashboard/internal/domain/user"
	"vltd-dashboard/internal/tokenstore"
	appErrors "vltd-dashboard/pkg/errors"
	"vltd-dashboard/pkg/utils"
)

// AdminAPI is the super-admin role's view of the backend.
type AdminAPI struct {
	c *Client
}

const roleAdmin = tokenstore.RoleAdmin

func (a *AdminAPI) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	return a.c.login(ctx, roleAdmin, "/admin/signin", creds)
}

func (a *AdminAPI) Logout() {
	a.c.logout(roleAdmin)
}

func (a *AdminAPI) Devices(ctx context.Context, p PageRequest) ([]device.Device, error) {
	return a.c.listDevices(ctx, roleAdmin, "/admin/devices", a.c.pageQuery(p))
}

func (a *AdminAPI) AllDevices(ctx context.Context) ([]device.Device, error) {
	return collectAll(ctx, a.c, a.Devices)
}

func (a *AdminAPI) SearchDevice(ctx context.Context, imei string) (*device.Device, error) {
	return a.c.searchDevice(ctx, roleAdmin, "/admin/devices/search", imei)
}

func (a *AdminAPI) CreateDevice(ctx context.Context, in DeviceInput) (*device.Device, error) {
	in.IMEI = utils.NormalizeIMEI(in.IMEI)
	var out device.Device
	if err := a.c.create(ctx, roleAdmin, "/admin/devices", &in, "device", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AdminAPI) UpdateDevice(ctx context.Context, id string, in DeviceInput) (*device.Device, error) {
	if msg, ok := utils.FirstValidationMessage(&in); !ok {
		return nil, appErrors.Validation(msg)
	}
	env, err := a.c.do(ctx, call{role: roleAdmin, method: http.MethodPut, path: "/admin/devices/" + url.PathEscape(id), body: in, expect: []string{"device"}})
	if err != nil {
		return nil, err
	}
	var out device.Device
	if _, err := env.decode("device", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AdminAPI) DeleteDevice(ctx context.Context, id string) error {
	_, err := a.c.do(ctx, call{role: roleAdmin, method: http.MethodDelete, path: "/admin/devices/" + url.PathEscape(id)})
	return err
}

func (a *AdminAPI) Users(ctx context.Context, p PageRequest) ([]user.User, error) {
	env, err := a.c.do(ctx, call{role: roleAdmin, method: http.MethodGet, path: "/admin/users", query: a.c.pageQuery(p), expect: []string{"users", "data"}})
	if err != nil {
		return nil, err
	}
	return decodeList[user.User](env, "users", "data")
}

func (a *AdminAPI) AllUsers(ctx context.Context) ([]user.User, error) {
	return collectAll(ctx, a.c, a.Users)
}

func (a *AdminAPI) GetUser(ctx context.Context, id string) (*user.User, error) {
	env, err := a.c.do(ctx, call{role: roleAdmin, method: http.MethodGet, path: "/admin/users/" + url.PathEscape(id), expect: []string{"user"}})
	if err != nil {
		if IsNotFound(err) {
			return nil, appErrors.NotFound("USER_NOT_FOUND", "User not found", user.ErrUserNotFound)
		}
		return nil, err
	}
	var out user.User
	if ok, err := env.decode("user", &out); err != nil {
		return nil, err
	} else if !ok {
		return nil, appErrors.NotFound("USER_NOT_FOUND", "User not found", user.ErrUserNotFound)
	}
	return &out, nil
}

func (a *AdminAPI) FindUserByPhone(ctx context.Context, phone string) (*user.User, error) {
	return a.c.findUserByPhone(ctx, roleAdmin, "/admin/users/search", phone)
}

func (a *AdminAPI) CreateUser(ctx context.Context, in user.NewUser) (*user.User, error) {
	return a.c.createUser(ctx, roleAdmin, "/admin/users", in)
}

func (a *AdminAPI) UpdateUser(ctx context.Context, id string, in user.Update) (*user.User, error) {
	if msg, ok := utils.FirstValidationMessage(&in); !ok {
		return nil, appErrors.Validation(msg)
	}
	env, err := a.c.do(ctx, call{role: roleAdmin, method: http.MethodPut, path: "/admin/users/" + url.PathEscape(id), body: in, expect: []string{"user"}})
	if err != nil {
		return nil, err
	}
	var out user.User
	if _, err := env.decode("user", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AdminAPI) DeleteUser(ctx context.Context, id string) error {
	_, err := a.c.do(ctx, call{role: roleAdmin, method: http.MethodDelete, path: "/admin/users/" + url.PathEscape(id)})
	return err
}

func (a *AdminAPI) AssignVehicle(ctx context.Context, userID string, v device.Vehicle) (*device.Vehicle, error) {
	return a.c.assignVehicle(ctx, roleAdmin, "/admin/vehicles/", userID, v)
}

func (a *AdminAPI) Manufacturers(ctx context.Context) ([]organization.Manufacturer, error) {
	return listEntities[organization.Manufacturer](ctx, a.c, roleAdmin, "/admin/manufacturers", "manufacturers")
}

func (a *AdminAPI) GetManufacturer(ctx context.Context, id string) (*organization.Manufacturer, error) {
	env, err := a.c.do(ctx, call{role: roleAdmin, method: http.MethodGet, path: "/admin/manufacturers/" + url.PathEscape(id), expect: []string{"manufacturer"}})
	if err != nil {
		return nil, err
	}
	var out organization.Manufacturer
	if ok, err := env.decode("manufacturer", &out); err != nil {
		return nil, err
	} else if !ok {
		return nil, appErrors.NotFound("MANUFACTURER_NOT_FOUND", "Manufacturer not found", appErrors.ErrNotFound)
	}
	return &out, nil
}

// AcknowledgeManufacturer provisions the manufacturer's login password and
// moves it to ACKNOWLEDGED. Callers validate the transition first.
func (a *AdminAPI) AcknowledgeManufacturer(ctx context.Context, id, password string) error {
	_, err := a.c.do(ctx, call{
		role:   roleAdmin,
		method: http.MethodPut,
		path:   "/admin/manufacturers/" + url.PathEscape(id) + "/acknowledge",
		body:   map[string]string{"password": strings.TrimSpace(password)},
	})
	if err == nil {
		a.c.log.Info("Manufacturer acknowledged", zap.String("manufacturer_id", id), zap.String("event", "manufacturer_acknowledged"))
	}
	return err
}

func (a *AdminAPI) ApproveManufacturer(ctx context.Context, id string) error {
	_, err := a.c.do(ctx, call{
		role:   roleAdmin,
		method: http.MethodPut,
		path:   "/admin/manufacturers/" + url.PathEscape(id) + "/approve",
	})
	if err == nil {
		a.c.log.Info("Manufacturer approved", zap.String("manufacturer_id", id), zap.String("event", "manufacturer_approved"))
	}
	return err
}

func (a *AdminAPI) ListDistributors(ctx context.Context) ([]organization.Distributor, error) {
	return listEntities[organization.Distributor](ctx, a.c, roleAdmin, "/admin/distributors", "distributors")
}

func (a *AdminAPI) ListRFCs(ctx context.Context) ([]organization.RFC, error) {
	return listEntities[organization.RFC](ctx, a.c, roleAdmin, "/admin/rfcs", "rfcs")
}

func (a *AdminAPI) Locations(ctx context.Context) ([]device.Location, error) {
	return a.c.locations(ctx, roleAdmin, "/admin/devices/locations")
}
