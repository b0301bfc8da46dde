package backend

import (
	"context"

	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/domain/organization"
	"vltd-dashboard/internal/tokenstore"
)

// DistributorAPI is the distributor role's view of the backend.
type DistributorAPI struct {
	c *Client
}

const roleDistributor = tokenstore.RoleDistributor

func (d *DistributorAPI) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	return d.c.login(ctx, roleDistributor, "/distributor/login/signin", creds)
}

func (d *DistributorAPI) Logout() {
	d.c.logout(roleDistributor)
}

func (d *DistributorAPI) Inventory(ctx context.Context, p PageRequest) ([]device.Device, error) {
	return d.c.listDevices(ctx, roleDistributor, "/distributor/inventory", d.c.pageQuery(p))
}

func (d *DistributorAPI) AllInventory(ctx context.Context) ([]device.Device, error) {
	return collectAll(ctx, d.c, d.Inventory)
}

func (d *DistributorAPI) ListRFCs(ctx context.Context) ([]organization.RFC, error) {
	return listEntities[organization.RFC](ctx, d.c, roleDistributor, "/distributor/rfcs", "rfcs")
}

func (d *DistributorAPI) CreateRFC(ctx context.Context, in organization.NewEntity) (*organization.RFC, error) {
	var out organization.RFC
	if err := d.c.create(ctx, roleDistributor, "/distributor/rfcs", in, "rfc", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *DistributorAPI) AssignToRFC(ctx context.Context, req AssignRequest) (*AssignResult, error) {
	return d.c.assign(ctx, roleDistributor, "/distributor/rfc/assign", req)
}
