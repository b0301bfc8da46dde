package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/domain/user"
	"vltd-dashboard/internal/tokenstore"
	appErrors "vltd-dashboard/pkg/errors"
	"vltd-dashboard/pkg/utils"
)

// listDevices reads a device list that comes back either under "devices",
// under "data", or as a bare array.
func (c *Client) listDevices(ctx context.Context, role tokenstore.Role, path string, query url.Values) ([]device.Device, error) {
	env, err := c.do(ctx, call{role: role, method: http.MethodGet, path: path, query: query, expect: []string{"devices", "data"}})
	if err != nil {
		return nil, err
	}
	return decodeList[device.Device](env, "devices", "data")
}

func decodeList[T any](env *envelope, keys ...string) ([]T, error) {
	out := []T{}
	if env.array != nil {
		holder := &envelope{status: env.status, fields: map[string]json.RawMessage{"items": env.array}}
		_, err := holder.decode("items", &out)
		return out, err
	}
	for _, key := range keys {
		ok, err := env.decode(key, &out)
		if err != nil {
			return nil, err
		}
		if ok {
			return out, nil
		}
	}
	return out, nil
}

func listEntities[T any](ctx context.Context, c *Client, role tokenstore.Role, path, key string) ([]T, error) {
	env, err := c.do(ctx, call{role: role, method: http.MethodGet, path: path, expect: []string{key, "data"}})
	if err != nil {
		return nil, err
	}
	return decodeList[T](env, key, "data")
}

func (c *Client) create(ctx context.Context, role tokenstore.Role, path string, in interface{}, key string, out interface{}) error {
	if msg, ok := utils.FirstValidationMessage(in); !ok {
		return appErrors.Validation(msg)
	}
	env, err := c.do(ctx, call{role: role, method: http.MethodPost, path: path, body: in, expect: []string{key}})
	if err != nil {
		return err
	}
	_, err = env.decode(key, out)
	return err
}

func (c *Client) assign(ctx context.Context, role tokenstore.Role, path string, req AssignRequest) (*AssignResult, error) {
	if strings.TrimSpace(req.EntityID) == "" {
		return nil, appErrors.Validation("Select an entity to assign to")
	}
	if len(req.IMEIs) == 0 {
		return nil, appErrors.Validation("Select at least one device")
	}
	env, err := c.do(ctx, call{role: role, method: http.MethodPut, path: path, body: req})
	if err != nil {
		return nil, err
	}
	out := AssignResult{Assigned: len(req.IMEIs)}
	if _, err := env.decode("assigned", &out.Assigned); err != nil {
		return nil, err
	}
	if _, err := env.decode("failed", &out.Failed); err != nil {
		return nil, err
	}
	return &out, nil
}

// searchDevice looks a device up by exact IMEI. A 404 or a success payload
// without a device both mean "not found".
func (c *Client) searchDevice(ctx context.Context, role tokenstore.Role, path, imei string) (*device.Device, error) {
	imei = utils.NormalizeIMEI(imei)
	if imei == "" {
		return nil, appErrors.Validation("IMEI is required")
	}
	q := url.Values{}
	q.Set("imei", imei)
	env, err := c.do(ctx, call{role: role, method: http.MethodGet, path: path, query: q, expect: []string{"device", "devices"}})
	if err != nil {
		if IsNotFound(err) {
			return nil, appErrors.NotFound("DEVICE_NOT_FOUND", "Device not found", device.ErrDeviceNotFound)
		}
		return nil, err
	}

	var found device.Device
	if ok, err := env.decode("device", &found); err != nil {
		return nil, err
	} else if ok {
		return exactIMEI([]device.Device{found}, imei)
	}
	list, err := decodeList[device.Device](env, "devices", "data")
	if err != nil {
		return nil, err
	}
	return exactIMEI(list, imei)
}

func exactIMEI(list []device.Device, imei string) (*device.Device, error) {
	for i := range list {
		if list[i].IMEI == imei {
			return &list[i], nil
		}
	}
	return nil, appErrors.NotFound("DEVICE_NOT_FOUND", "Device not found", device.ErrDeviceNotFound)
}

func (c *Client) findUserByPhone(ctx context.Context, role tokenstore.Role, path, phone string) (*user.User, error) {
	phone = utils.SanitizePhone(phone)
	if phone == "" {
		return nil, appErrors.Validation("Phone number is required")
	}
	q := url.Values{}
	q.Set("phone", phone)
	env, err := c.do(ctx, call{role: role, method: http.MethodGet, path: path, query: q, expect: []string{"user"}})
	if err != nil {
		if IsNotFound(err) {
			return nil, appErrors.NotFound("USER_NOT_FOUND", "User not found", user.ErrUserNotFound)
		}
		return nil, err
	}
	var found user.User
	if ok, err := env.decode("user", &found); err != nil {
		return nil, err
	} else if !ok || found.ID == "" {
		return nil, appErrors.NotFound("USER_NOT_FOUND", "User not found", user.ErrUserNotFound)
	}
	return &found, nil
}

func (c *Client) createUser(ctx context.Context, role tokenstore.Role, path string, in user.NewUser) (*user.User, error) {
	in.Normalize()
	var out user.User
	if err := c.create(ctx, role, path, &in, "user", &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &appErrors.AppError{Code: "UNEXPECTED_RESPONSE", Message: "Server did not return the created user", Kind: appErrors.KindTransport}
	}
	return &out, nil
}

func (c *Client) assignVehicle(ctx context.Context, role tokenstore.Role, pathPrefix, userID string, v device.Vehicle) (*device.Vehicle, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, appErrors.Validation("Resolve a user before assigning a vehicle")
	}
	if strings.TrimSpace(v.DeviceIMEI) == "" {
		return nil, appErrors.Validation("IMEI is required")
	}
	env, err := c.do(ctx, call{
		role:   role,
		method: http.MethodPost,
		path:   pathPrefix + url.PathEscape(userID),
		body:   v,
		expect: []string{"vehicle"},
	})
	if err != nil {
		return nil, err
	}
	out := v
	if _, err := env.decode("vehicle", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) locations(ctx context.Context, role tokenstore.Role, path string) ([]device.Location, error) {
	env, err := c.do(ctx, call{role: role, method: http.MethodGet, path: path, expect: []string{"locations"}})
	if err != nil {
		return nil, err
	}
	return decodeList[device.Location](env, "locations", "data")
}
