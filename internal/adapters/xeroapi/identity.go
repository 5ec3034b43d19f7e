package xeroapi

import (
	"context"

	domainauth "github.com/xeroflow/xeroflow/internal/domain/auth"
	"github.com/xeroflow/xeroflow/internal/ports"
)

// Connections lists the tenants the token is authorised for. The
// connections endpoint lives on the identity host and takes no tenant
// header.
func (c *Client) Connections(ctx context.Context, accessToken string) ([]domainauth.Connection, error) {
	var conns []domainauth.Connection
	auth := ports.RequestAuth{AccessToken: accessToken}
	if err := c.get(ctx, c.identityURL+"/connections", auth, &conns); err != nil {
		return nil, err
	}
	return conns, nil
}
