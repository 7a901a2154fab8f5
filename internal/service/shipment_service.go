package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tms-graphql-api/internal/core/auth"
	"tms-graphql-api/internal/core/cache"
	"tms-graphql-api/internal/domain"
	"tms-graphql-api/pkg/utils"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	statsCacheKey = "stats:v1"
)

type ListParams struct {
	Filter domain.ShipmentFilter
	Sort   *domain.ShipmentSort
	Page   *int
	Limit  *int
}

type PageInfo struct {
	HasNextPage     bool
	HasPreviousPage bool
	TotalCount      int64
	TotalPages      int
	CurrentPage     int
}

type ShipmentPage struct {
	Nodes    []domain.Shipment
	PageInfo PageInfo
}

// Paginate 归一化分页参数：page < 1 取 1，limit < 1 取默认值，上限 MaxLimit
func Paginate(page, limit *int) (int, int) {
	p, l := DefaultPage, DefaultLimit
	if page != nil && *page > 1 {
		p = *page
	}
	if limit != nil && *limit > 0 {
		l = min(*limit, MaxLimit)
	}
	return p, l
}

func NewPageInfo(page, limit int, total int64) PageInfo {
	pages := int((total + int64(limit) - 1) / int64(limit))
	return PageInfo{
		HasNextPage:     page < pages,
		HasPreviousPage: page > 1,
		TotalCount:      total,
		TotalPages:      pages,
		CurrentPage:     page,
	}
}

type ShipmentService struct {
	repo  domain.ShipmentRepository
	stats cache.Entry[domain.ShipmentStats]
	log   *zap.Logger

	// Now 可在测试中替换
	Now func() time.Time
}

// NewShipmentService c 为 nil 时统计不走缓存
func NewShipmentService(repo domain.ShipmentRepository, c *cache.Cache, statsTTL time.Duration, l *zap.Logger) *ShipmentService {
	if l == nil {
		l = zap.NewNop()
	}
	return &ShipmentService{
		repo:  repo,
		stats: cache.NewEntry[domain.ShipmentStats](c, statsCacheKey, statsTTL),
		log:   l,
		Now:   time.Now,
	}
}

func (s *ShipmentService) now() time.Time { return s.Now().UTC().Truncate(time.Millisecond) }

// stamp 返回严格晚于 prev 的时间
func (s *ShipmentService) stamp(prev time.Time) time.Time {
	t := s.now()
	if !t.After(prev) {
		t = prev.Truncate(time.Millisecond).Add(time.Millisecond)
	}
	return t
}

func (s *ShipmentService) List(ctx context.Context, p ListParams) (*ShipmentPage, error) {
	page, limit := Paginate(p.Page, p.Limit)
	q := domain.ShipmentQuery{
		Filter: p.Filter,
		Sort:   domain.ShipmentSort{Field: "createdAt", Order: domain.SortDesc},
		Offset: (page - 1) * limit,
		Limit:  limit,
	}
	if p.Sort != nil {
		if _, ok := domain.SortableFields[p.Sort.Field]; !ok {
			return nil, domain.BadInput("unsupported sort field: "+p.Sort.Field, nil)
		}
		q.Sort = *p.Sort
	}
	nodes, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &ShipmentPage{Nodes: nodes, PageInfo: NewPageInfo(page, limit, total)}, nil
}

// Get 返回带事件与创建/更新人的详情；不存在时为 (nil, nil)
func (s *ShipmentService) Get(ctx context.Context, id string) (*domain.Shipment, error) {
	return s.repo.FindJoined(ctx, id)
}

func (s *ShipmentService) Stats(ctx context.Context) (*domain.ShipmentStats, error) {
	return s.stats.Get(ctx, s.repo.Stats)
}

func (s *ShipmentService) Create(ctx context.Context, caller auth.Identity, in domain.CreateShipmentInput) (*domain.Shipment, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	now := s.now()
	uid := caller.UserID
	sh := &domain.Shipment{
		ID:                  utils.NewID(),
		ShipperName:         in.ShipperName,
		CarrierName:         in.CarrierName,
		PickupLocation:      in.PickupLocation,
		PickupDate:          in.PickupDate,
		DeliveryLocation:    in.DeliveryLocation,
		DeliveryDate:        in.DeliveryDate,
		Status:              domain.StatusPending,
		Priority:            domain.PriorityMedium,
		TrackingNumber:      in.TrackingNumber,
		Rate:                in.Rate,
		Weight:              in.Weight,
		Dimensions:          in.Dimensions,
		SpecialInstructions: in.SpecialInstructions,
		CreatedAt:           now,
		UpdatedAt:           now,
		CreatedByID:         &uid,
		UpdatedByID:         &uid,
	}
	if in.Status != nil {
		sh.Status = *in.Status
	}
	if in.Priority != nil {
		sh.Priority = *in.Priority
	}
	if in.Flagged != nil {
		sh.Flagged = *in.Flagged
	}
	if err := s.repo.Create(ctx, sh); err != nil {
		return nil, err
	}
	s.stats.Drop(ctx)
	s.log.Info("shipment created", zap.String("id", sh.ID), zap.String("tracking", sh.TrackingNumber), zap.String("by", uid))
	return s.repo.FindJoined(ctx, sh.ID)
}

func (s *ShipmentService) Update(ctx context.Context, caller auth.Identity, id string, in domain.UpdateShipmentInput) (*domain.Shipment, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	sh, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, domain.NotFound("Shipment not found")
	}
	in.Apply(sh)
	uid := caller.UserID
	sh.UpdatedByID = &uid
	sh.UpdatedAt = s.stamp(sh.UpdatedAt)
	if err := s.repo.Update(ctx, sh); err != nil {
		return nil, err
	}
	s.stats.Drop(ctx)
	return s.repo.FindJoined(ctx, id)
}

// Delete 对不存在的 id 同样返回 true
func (s *ShipmentService) Delete(ctx context.Context, id string) (bool, error) {
	if err := s.repo.Delete(ctx, id); err != nil {
		return false, err
	}
	s.stats.Drop(ctx)
	s.log.Info("shipment deleted", zap.String("id", id))
	return true, nil
}

func (s *ShipmentService) AddTrackingEvent(ctx context.Context, shipmentID string, in domain.AddTrackingEventInput) (*domain.Shipment, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	sh, err := s.repo.FindByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, domain.NotFound("Shipment not found")
	}
	ts, err := domain.ParseTimestamp(in.Timestamp)
	if err != nil {
		return nil, domain.BadInput("invalid timestamp", err)
	}
	ev := &domain.TrackingEvent{
		ID:          utils.NewID(),
		ShipmentID:  shipmentID,
		Timestamp:   ts,
		Location:    in.Location,
		Status:      in.Status,
		Description: in.Description,
	}
	if err := s.repo.AddEvent(ctx, ev); err != nil {
		return nil, err
	}
	return s.repo.FindJoined(ctx, shipmentID)
}
