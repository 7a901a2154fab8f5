package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tms-graphql-api/internal/domain"
)

type ShipmentRepo struct{ db *gorm.DB }

func NewShipmentRepo(db *gorm.DB) *ShipmentRepo { return &ShipmentRepo{db: db} }

// 搜索覆盖的列
var searchColumns = []string{"shipper_name", "carrier_name", "pickup_location", "delivery_location", "tracking_number"}

func applyFilter(tx *gorm.DB, f domain.ShipmentFilter) *gorm.DB {
	if f.Status != nil {
		tx = tx.Where("status = ?", *f.Status)
	}
	if f.Priority != nil {
		tx = tx.Where("priority = ?", *f.Priority)
	}
	if f.Flagged != nil {
		tx = tx.Where("flagged = ?", *f.Flagged)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		conds := make([]string, 0, len(searchColumns))
		args := make([]any, 0, len(searchColumns))
		for _, col := range searchColumns {
			conds = append(conds, "LOWER("+col+") LIKE ?")
			args = append(args, like)
		}
		tx = tx.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
	return tx
}

func orderColumns(s domain.ShipmentSort) []clause.OrderByColumn {
	col, ok := domain.SortableFields[s.Field]
	if !ok {
		col = "created_at"
	}
	desc := s.Order != domain.SortAsc
	cols := []clause.OrderByColumn{{Column: clause.Column{Name: col}, Desc: desc}}
	if col != "id" {
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
	}
	return cols
}

func (r *ShipmentRepo) List(ctx context.Context, q domain.ShipmentQuery) ([]domain.Shipment, int64, error) {
	tx := applyFilter(r.db.WithContext(ctx).Model(&domain.Shipment{}), q.Filter)

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count shipments: %w", err)
	}

	page := tx.Session(&gorm.Session{})
	for _, c := range orderColumns(q.Sort) {
		page = page.Order(c)
	}
	if q.Offset > 0 {
		page = page.Offset(q.Offset)
	}
	if q.Limit > 0 {
		page = page.Limit(q.Limit)
	}
	list := make([]domain.Shipment, 0, q.Limit)
	if err := page.Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("list shipments: %w", err)
	}
	return list, total, nil
}

func (r *ShipmentRepo) FindByID(ctx context.Context, id string) (*domain.Shipment, error) {
	var s domain.Shipment
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find shipment %s: %w", id, err)
	}
	return &s, nil
}

func (r *ShipmentRepo) FindJoined(ctx context.Context, id string) (*domain.Shipment, error) {
	var s domain.Shipment
	err := r.db.WithContext(ctx).
		Preload("TrackingEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("occurred_at DESC").Order("id DESC")
		}).
		Preload("CreatedBy").
		Preload("UpdatedBy").
		First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find shipment %s: %w", id, err)
	}
	if s.TrackingEvents == nil {
		s.TrackingEvents = []domain.TrackingEvent{}
	}
	return &s, nil
}

func (r *ShipmentRepo) Create(ctx context.Context, s *domain.Shipment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(s).Error; err != nil {
		if isDupKey(err) {
			return fmt.Errorf("create shipment %s: %w", s.TrackingNumber, domain.ErrDuplicate)
		}
		return fmt.Errorf("create shipment: %w", err)
	}
	return nil
}

// Update 整行保存；关联由各自的仓储方法维护
func (r *ShipmentRepo) Update(ctx context.Context, s *domain.Shipment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(s).Error; err != nil {
		if isDupKey(err) {
			return fmt.Errorf("update shipment %s: %w", s.ID, domain.ErrDuplicate)
		}
		return fmt.Errorf("update shipment %s: %w", s.ID, err)
	}
	return nil
}

func (r *ShipmentRepo) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("shipment_id = ?", id).Delete(&domain.TrackingEvent{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&domain.Shipment{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete shipment %s: %w", id, err)
	}
	return nil
}

func (r *ShipmentRepo) AddEvent(ctx context.Context, e *domain.TrackingEvent) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("add tracking event to %s: %w", e.ShipmentID, err)
	}
	return nil
}

func (r *ShipmentRepo) EventsByShipmentIDs(ctx context.Context, ids []string) ([]domain.TrackingEvent, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var events []domain.TrackingEvent
	err := r.db.WithContext(ctx).
		Where("shipment_id IN ?", ids).
		Order("occurred_at DESC").Order("id DESC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("load tracking events: %w", err)
	}
	return events, nil
}

type groupCount struct {
	K string
	N int64
}

func (r *ShipmentRepo) Stats(ctx context.Context) (*domain.ShipmentStats, error) {
	db := r.db.WithContext(ctx).Model(&domain.Shipment{})

	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("stats count: %w", err)
	}

	var byStatus []groupCount
	if err := db.Session(&gorm.Session{}).Select("status AS k, COUNT(*) AS n").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("stats by status: %w", err)
	}
	var byPriority []groupCount
	if err := db.Session(&gorm.Session{}).Select("priority AS k, COUNT(*) AS n").Group("priority").Scan(&byPriority).Error; err != nil {
		return nil, fmt.Errorf("stats by priority: %w", err)
	}

	var revenue float64
	if err := db.Session(&gorm.Session{}).Select("COALESCE(SUM(rate), 0)").Row().Scan(&revenue); err != nil {
		return nil, fmt.Errorf("stats revenue: %w", err)
	}

	sm := make(map[domain.ShipmentStatus]int64, len(byStatus))
	for _, g := range byStatus {
		sm[domain.ShipmentStatus(g.K)] = g.N
	}
	pm := make(map[domain.ShipmentPriority]int64, len(byPriority))
	for _, g := range byPriority {
		pm[domain.ShipmentPriority(g.K)] = g.N
	}
	return domain.FillStats(total, sm, pm, revenue), nil
}

// Reset 清空业务表，供种子命令使用
func Reset(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&domain.TrackingEvent{}, &domain.Shipment{}, &domain.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
