package graphql

import (
	"context"

	graphqlgo "github.com/graph-gophers/graphql-go"
	"go.uber.org/zap"

	"tms-graphql-api/internal/core/auth"
	"tms-graphql-api/internal/domain"
	"tms-graphql-api/internal/service"
	"tms-graphql-api/internal/transport/graphql/loader"
)

// Resolver 是 Query 与 Mutation 的根。每个根字段先按 auth.Policy 鉴权。
type Resolver struct {
	accounts *service.AuthService
	ships    *service.ShipmentService
	log      *zap.Logger
}

func NewResolver(accounts *service.AuthService, ships *service.ShipmentService, l *zap.Logger) *Resolver {
	if l == nil {
		l = zap.NewNop()
	}
	return &Resolver{accounts: accounts, ships: ships, log: l}
}

// fail 记录未分类的错误（存储层等）后原样返回
func (r *Resolver) fail(op string, err error) error {
	if domain.KindOf(err) == "" {
		r.log.Error("resolver failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

// ---------- Query ----------

func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	id, err := auth.Authorize(ctx, "me")
	if err != nil {
		return nil, err
	}
	u, err := r.accounts.Me(ctx, id)
	if err != nil {
		return nil, r.fail("me", err)
	}
	return newUser(u), nil
}

type shipmentFiltersInput struct {
	Status   *string
	Priority *string
	Search   *string
	Flagged  *bool
}

type shipmentSortInput struct {
	Field string
	Order string
}

type shipmentsArgs struct {
	Filters *shipmentFiltersInput
	Sort    *shipmentSortInput
	Page    *int32
	Limit   *int32
}

func (a shipmentsArgs) params() service.ListParams {
	var p service.ListParams
	if f := a.Filters; f != nil {
		if f.Status != nil {
			st := domain.ShipmentStatus(*f.Status)
			p.Filter.Status = &st
		}
		if f.Priority != nil {
			pr := domain.ShipmentPriority(*f.Priority)
			p.Filter.Priority = &pr
		}
		if f.Search != nil {
			p.Filter.Search = *f.Search
		}
		p.Filter.Flagged = f.Flagged
	}
	if a.Sort != nil {
		p.Sort = &domain.ShipmentSort{Field: a.Sort.Field, Order: domain.SortOrder(a.Sort.Order)}
	}
	if a.Page != nil {
		v := int(*a.Page)
		p.Page = &v
	}
	if a.Limit != nil {
		v := int(*a.Limit)
		p.Limit = &v
	}
	return p
}

func (r *Resolver) Shipments(ctx context.Context, args shipmentsArgs) (*connectionResolver, error) {
	if _, err := auth.Authorize(ctx, "shipments"); err != nil {
		return nil, err
	}
	page, err := r.ships.List(ctx, args.params())
	if err != nil {
		return nil, r.fail("shipments", err)
	}
	return &connectionResolver{page: page}, nil
}

func (r *Resolver) Shipment(ctx context.Context, args struct{ ID graphqlgo.ID }) (*shipmentResolver, error) {
	if _, err := auth.Authorize(ctx, "shipment"); err != nil {
		return nil, err
	}
	s, err := r.ships.Get(ctx, string(args.ID))
	if err != nil {
		return nil, r.fail("shipment", err)
	}
	return newShipment(s, true), nil
}

func (r *Resolver) ShipmentStats(ctx context.Context) (*statsResolver, error) {
	if _, err := auth.Authorize(ctx, "shipmentStats"); err != nil {
		return nil, err
	}
	st, err := r.ships.Stats(ctx)
	if err != nil {
		return nil, r.fail("shipmentStats", err)
	}
	return &statsResolver{st: st}, nil
}

// ---------- Mutation ----------

func (r *Resolver) Login(ctx context.Context, args struct{ Email, Password string }) (*authPayloadResolver, error) {
	if _, err := auth.Authorize(ctx, "login"); err != nil {
		return nil, err
	}
	p, err := r.accounts.Login(ctx, domain.LoginInput{Email: args.Email, Password: args.Password})
	if err != nil {
		return nil, r.fail("login", err)
	}
	return &authPayloadResolver{p: p}, nil
}

func (r *Resolver) Register(ctx context.Context, args struct{ Email, Password, Name string }) (*authPayloadResolver, error) {
	if _, err := auth.Authorize(ctx, "register"); err != nil {
		return nil, err
	}
	p, err := r.accounts.Register(ctx, domain.RegisterInput{Email: args.Email, Password: args.Password, Name: args.Name})
	if err != nil {
		return nil, r.fail("register", err)
	}
	return &authPayloadResolver{p: p}, nil
}

type createShipmentInput struct {
	ShipperName         string
	CarrierName         string
	PickupLocation      string
	PickupDate          string
	DeliveryLocation    string
	DeliveryDate        string
	Status              *string
	Priority            *string
	TrackingNumber      string
	Rate                float64
	Weight              float64
	Dimensions          string
	SpecialInstructions *string
	Flagged             *bool
}

func (in createShipmentInput) toDomain() domain.CreateShipmentInput {
	return domain.CreateShipmentInput{
		ShipperName:         in.ShipperName,
		CarrierName:         in.CarrierName,
		PickupLocation:      in.PickupLocation,
		PickupDate:          in.PickupDate,
		DeliveryLocation:    in.DeliveryLocation,
		DeliveryDate:        in.DeliveryDate,
		Status:              statusPtr(in.Status),
		Priority:            priorityPtr(in.Priority),
		TrackingNumber:      in.TrackingNumber,
		Rate:                in.Rate,
		Weight:              in.Weight,
		Dimensions:          in.Dimensions,
		SpecialInstructions: in.SpecialInstructions,
		Flagged:             in.Flagged,
	}
}

type updateShipmentInput struct {
	ShipperName         *string
	CarrierName         *string
	PickupLocation      *string
	PickupDate          *string
	DeliveryLocation    *string
	DeliveryDate        *string
	Status              *string
	Priority            *string
	TrackingNumber      *string
	Rate                *float64
	Weight              *float64
	Dimensions          *string
	SpecialInstructions *string
	Flagged             *bool
}

func (in updateShipmentInput) toDomain() domain.UpdateShipmentInput {
	return domain.UpdateShipmentInput{
		ShipperName:         in.ShipperName,
		CarrierName:         in.CarrierName,
		PickupLocation:      in.PickupLocation,
		PickupDate:          in.PickupDate,
		DeliveryLocation:    in.DeliveryLocation,
		DeliveryDate:        in.DeliveryDate,
		Status:              statusPtr(in.Status),
		Priority:            priorityPtr(in.Priority),
		TrackingNumber:      in.TrackingNumber,
		Rate:                in.Rate,
		Weight:              in.Weight,
		Dimensions:          in.Dimensions,
		SpecialInstructions: in.SpecialInstructions,
		Flagged:             in.Flagged,
	}
}

func statusPtr(s *string) *domain.ShipmentStatus {
	if s == nil {
		return nil
	}
	v := domain.ShipmentStatus(*s)
	return &v
}

func priorityPtr(s *string) *domain.ShipmentPriority {
	if s == nil {
		return nil
	}
	v := domain.ShipmentPriority(*s)
	return &v
}

type addTrackingEventInput struct {
	Timestamp   string
	Location    string
	Status      string
	Description string
}

func (r *Resolver) CreateShipment(ctx context.Context, args struct{ Input createShipmentInput }) (*shipmentResolver, error) {
	caller, err := auth.Authorize(ctx, "createShipment")
	if err != nil {
		return nil, err
	}
	s, err := r.ships.Create(ctx, caller, args.Input.toDomain())
	if err != nil {
		return nil, r.fail("createShipment", err)
	}
	return newShipment(s, true), nil
}

func (r *Resolver) UpdateShipment(ctx context.Context, args struct {
	ID    graphqlgo.ID
	Input updateShipmentInput
}) (*shipmentResolver, error) {
	caller, err := auth.Authorize(ctx, "updateShipment")
	if err != nil {
		return nil, err
	}
	id := string(args.ID)
	s, err := r.ships.Update(ctx, caller, id, args.Input.toDomain())
	if err != nil {
		return nil, r.fail("updateShipment", err)
	}
	forget(ctx, id)
	return newShipment(s, true), nil
}

func (r *Resolver) DeleteShipment(ctx context.Context, args struct{ ID graphqlgo.ID }) (bool, error) {
	if _, err := auth.Authorize(ctx, "deleteShipment"); err != nil {
		return false, err
	}
	id := string(args.ID)
	ok, err := r.ships.Delete(ctx, id)
	if err != nil {
		return false, r.fail("deleteShipment", err)
	}
	forget(ctx, id)
	return ok, nil
}

func (r *Resolver) AddTrackingEvent(ctx context.Context, args struct {
	ShipmentID graphqlgo.ID
	Input      addTrackingEventInput
}) (*shipmentResolver, error) {
	if _, err := auth.Authorize(ctx, "addTrackingEvent"); err != nil {
		return nil, err
	}
	id := string(args.ShipmentID)
	s, err := r.ships.AddTrackingEvent(ctx, id, domain.AddTrackingEventInput{
		Timestamp:   args.Input.Timestamp,
		Location:    args.Input.Location,
		Status:      args.Input.Status,
		Description: args.Input.Description,
	})
	if err != nil {
		return nil, r.fail("addTrackingEvent", err)
	}
	forget(ctx, id)
	return newShipment(s, true), nil
}

func forget(ctx context.Context, shipmentID string) {
	if l := loader.For(ctx); l != nil {
		l.Forget(ctx, shipmentID)
	}
}
