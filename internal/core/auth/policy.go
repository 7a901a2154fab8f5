package auth

import (
	"context"

	"tms-graphql-api/internal/domain"
)

type Requirement int

const (
	Public Requirement = iota
	Authenticated
	Admin
)

func (r Requirement) String() string {
	switch r {
	case Public:
		return "public"
	case Authenticated:
		return "authenticated"
	case Admin:
		return "admin"
	}
	return "unknown"
}

// Policy 操作 → 所需角色；未登记的操作一律拒绝
var Policy = map[string]Requirement{
	"me":               Authenticated,
	"shipments":        Authenticated,
	"shipment":         Authenticated,
	"shipmentStats":    Admin,
	"login":            Public,
	"register":         Public,
	"createShipment":   Authenticated,
	"updateShipment":   Authenticated,
	"deleteShipment":   Admin,
	"addTrackingEvent": Authenticated,
}

// Authorize evaluates the policy entry of op against the caller in ctx.
func Authorize(ctx context.Context, op string) (Identity, error) {
	req, ok := Policy[op]
	if !ok {
		return FromContext(ctx), domain.Forbidden("operation " + op + " is not allowed")
	}
	switch req {
	case Public:
		return FromContext(ctx), nil
	case Authenticated:
		return RequireAuth(ctx)
	default:
		return RequireAdmin(ctx)
	}
}
