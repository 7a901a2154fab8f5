package graphql

import (
	"context"
	"time"

	graphqlgo "github.com/graph-gophers/graphql-go"

	"tms-graphql-api/internal/domain"
	"tms-graphql-api/internal/service"
	"tms-graphql-api/internal/transport/graphql/loader"
)

// 与浏览器 Date.toISOString 一致
const isoLayout = "2006-01-02T15:04:05.000Z"

func isoTime(t time.Time) string { return t.UTC().Format(isoLayout) }

type userResolver struct{ u *domain.User }

func newUser(u *domain.User) *userResolver {
	if u == nil {
		return nil
	}
	return &userResolver{u: u}
}

func (r *userResolver) ID() graphqlgo.ID  { return graphqlgo.ID(r.u.ID) }
func (r *userResolver) Email() string     { return r.u.Email }
func (r *userResolver) Name() string      { return r.u.Name }
func (r *userResolver) Role() string      { return string(r.u.Role) }
func (r *userResolver) CreatedAt() string { return isoTime(r.u.CreatedAt) }

type authPayloadResolver struct{ p *service.AuthPayload }

func (r *authPayloadResolver) Token() string       { return r.p.Token }
func (r *authPayloadResolver) User() *userResolver { return newUser(r.p.User) }

type trackingEventResolver struct{ e domain.TrackingEvent }

func (r *trackingEventResolver) ID() graphqlgo.ID    { return graphqlgo.ID(r.e.ID) }
func (r *trackingEventResolver) Timestamp() string   { return isoTime(r.e.Timestamp) }
func (r *trackingEventResolver) Location() string    { return r.e.Location }
func (r *trackingEventResolver) Status() string      { return r.e.Status }
func (r *trackingEventResolver) Description() string { return r.e.Description }

// shipmentResolver: joined 为 true 时关联数据已随记录一起取回，
// 否则经由请求级 loader 解析
type shipmentResolver struct {
	s      *domain.Shipment
	joined bool
}

func newShipment(s *domain.Shipment, joined bool) *shipmentResolver {
	if s == nil {
		return nil
	}
	return &shipmentResolver{s: s, joined: joined}
}

func (r *shipmentResolver) ID() graphqlgo.ID             { return graphqlgo.ID(r.s.ID) }
func (r *shipmentResolver) ShipperName() string          { return r.s.ShipperName }
func (r *shipmentResolver) CarrierName() string          { return r.s.CarrierName }
func (r *shipmentResolver) PickupLocation() string       { return r.s.PickupLocation }
func (r *shipmentResolver) PickupDate() string           { return r.s.PickupDate }
func (r *shipmentResolver) DeliveryLocation() string     { return r.s.DeliveryLocation }
func (r *shipmentResolver) DeliveryDate() string         { return r.s.DeliveryDate }
func (r *shipmentResolver) Status() string               { return string(r.s.Status) }
func (r *shipmentResolver) Priority() string             { return string(r.s.Priority) }
func (r *shipmentResolver) TrackingNumber() string       { return r.s.TrackingNumber }
func (r *shipmentResolver) Rate() float64                { return r.s.Rate }
func (r *shipmentResolver) Weight() float64              { return r.s.Weight }
func (r *shipmentResolver) Dimensions() string           { return r.s.Dimensions }
func (r *shipmentResolver) SpecialInstructions() *string { return r.s.SpecialInstructions }
func (r *shipmentResolver) Flagged() bool                { return r.s.Flagged }
func (r *shipmentResolver) CreatedAt() string            { return isoTime(r.s.CreatedAt) }
func (r *shipmentResolver) UpdatedAt() string            { return isoTime(r.s.UpdatedAt) }

func (r *shipmentResolver) TrackingEvents(ctx context.Context) ([]*trackingEventResolver, error) {
	events := r.s.TrackingEvents
	if !r.joined {
		var err error
		if events, err = loader.For(ctx).EventsOf(ctx, r.s.ID); err != nil {
			return nil, err
		}
	}
	out := make([]*trackingEventResolver, 0, len(events))
	for _, e := range events {
		out = append(out, &trackingEventResolver{e: e})
	}
	return out, nil
}

func (r *shipmentResolver) CreatedBy(ctx context.Context) (*userResolver, error) {
	return r.person(ctx, r.s.CreatedByID, r.s.CreatedBy)
}

func (r *shipmentResolver) UpdatedBy(ctx context.Context) (*userResolver, error) {
	return r.person(ctx, r.s.UpdatedByID, r.s.UpdatedBy)
}

func (r *shipmentResolver) person(ctx context.Context, id *string, preloaded *domain.User) (*userResolver, error) {
	if id == nil || *id == "" {
		return nil, nil
	}
	if r.joined {
		return newUser(preloaded), nil
	}
	u, err := loader.For(ctx).User(ctx, *id)
	if err != nil {
		return nil, err
	}
	return newUser(u), nil
}

type connectionResolver struct{ page *service.ShipmentPage }

func (r *connectionResolver) Nodes() []*shipmentResolver {
	out := make([]*shipmentResolver, 0, len(r.page.Nodes))
	for i := range r.page.Nodes {
		out = append(out, newShipment(&r.page.Nodes[i], false))
	}
	return out
}

func (r *connectionResolver) PageInfo() *pageInfoResolver {
	return &pageInfoResolver{p: r.page.PageInfo}
}

type pageInfoResolver struct{ p service.PageInfo }

func (r *pageInfoResolver) HasNextPage() bool     { return r.p.HasNextPage }
func (r *pageInfoResolver) HasPreviousPage() bool { return r.p.HasPreviousPage }
func (r *pageInfoResolver) TotalCount() int32     { return int32(r.p.TotalCount) }
func (r *pageInfoResolver) TotalPages() int32     { return int32(r.p.TotalPages) }
func (r *pageInfoResolver) CurrentPage() int32    { return int32(r.p.CurrentPage) }

type statsResolver struct{ st *domain.ShipmentStats }

func (r *statsResolver) TotalShipments() int32 { return int32(r.st.TotalShipments) }
func (r *statsResolver) TotalRevenue() float64 { return r.st.TotalRevenue }

func (r *statsResolver) ByStatus() []*statusCountResolver {
	out := make([]*statusCountResolver, 0, len(r.st.ByStatus))
	for _, c := range r.st.ByStatus {
		out = append(out, &statusCountResolver{c: c})
	}
	return out
}

func (r *statsResolver) ByPriority() []*priorityCountResolver {
	out := make([]*priorityCountResolver, 0, len(r.st.ByPriority))
	for _, c := range r.st.ByPriority {
		out = append(out, &priorityCountResolver{c: c})
	}
	return out
}

type statusCountResolver struct{ c domain.StatusCount }

func (r *statusCountResolver) Status() string { return string(r.c.Status) }
func (r *statusCountResolver) Count() int32   { return int32(r.c.Count) }

type priorityCountResolver struct{ c domain.PriorityCount }

func (r *priorityCountResolver) Priority() string { return string(r.c.Priority) }
func (r *priorityCountResolver) Count() int32     { return int32(r.c.Count) }
