package service

import (
	"context"
	"errors"
	"fmt"

	domainauth "github.com/xeroflow/xeroflow/internal/domain/auth"
	apperrors "github.com/xeroflow/xeroflow/internal/errors"
	"github.com/xeroflow/xeroflow/internal/ports"
)

// TenantServiceOptions groups dependencies for TenantService.
type TenantServiceOptions struct {
	Identity ports.IdentityClient
	Sessions ports.SessionStore
}

// TenantService resolves which tenant API calls should run against.
// Resolution is deterministic: the first ORGANISATION connection in the
// order the identity endpoint returns them. The result is cached on the
// session so steady-state requests skip the connections round trip.
type TenantService struct {
	identity ports.IdentityClient
	sessions ports.SessionStore
}

// NewTenantService constructs a new TenantService.
func NewTenantService(opts TenantServiceOptions) *TenantService {
	return &TenantService{
		identity: opts.Identity,
		sessions: opts.Sessions,
	}
}

// Resolve returns the tenant id for the session, consulting the
// identity endpoint only on a cache miss.
func (s *TenantService) Resolve(ctx context.Context, session domainauth.Session, accessToken string) (string, error) {
	if session.TenantID != "" {
		return session.TenantID, nil
	}

	conns, err := s.identity.Connections(ctx, accessToken)
	if err != nil {
		return "", fmt.Errorf("list connections: %w", err)
	}

	tenantID := firstOrganisation(conns)
	if tenantID == "" {
		return "", apperrors.TenantNotFound("no organisation connection for this token")
	}

	// Cache writeback is best effort. A conflict means a concurrent
	// update bumped the version; the next request resolves from that
	// session instead.
	cached := session
	cached.TenantID = tenantID
	cached.Version = session.Version + 1
	if updErr := s.sessions.Update(ctx, cached); updErr != nil &&
		!apperrors.IsConflict(updErr) && !errors.Is(updErr, ports.ErrSessionNotFound) {
		return "", fmt.Errorf("cache tenant id: %w", updErr)
	}

	return tenantID, nil
}

func firstOrganisation(conns []domainauth.Connection) string {
	for _, conn := range conns {
		if conn.TenantType == domainauth.TenantTypeOrganisation {
			return conn.TenantID
		}
	}
	return ""
}
