package repo

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"tms-graphql-api/internal/domain"
)

// MemoryStore 是进程内存储，用于本地开发（db.driver=memory）与测试。
// 它本身实现 UserRepository，Shipments() 返回 ShipmentRepository 视图。
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	shipments map[string]domain.Shipment
	events    map[string][]domain.TrackingEvent // shipmentID -> events
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		shipments: make(map[string]domain.Shipment),
		events:    make(map[string][]domain.TrackingEvent),
	}
}

var (
	_ domain.UserRepository     = (*MemoryStore)(nil)
	_ domain.ShipmentRepository = memShipments{}
)

func (m *MemoryStore) Create(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.users {
		if ex.Email == u.Email {
			return fmt.Errorf("create user %s: %w", u.Email, domain.ErrDuplicate)
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *MemoryStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) FindByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MemoryStore) Shipments() domain.ShipmentRepository { return memShipments{m} }

type memShipments struct{ m *MemoryStore }

func matches(s *domain.Shipment, f domain.ShipmentFilter) bool {
	if f.Status != nil && s.Status != *f.Status {
		return false
	}
	if f.Priority != nil && s.Priority != *f.Priority {
		return false
	}
	if f.Flagged != nil && s.Flagged != *f.Flagged {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	for _, v := range []string{s.ShipperName, s.CarrierName, s.PickupLocation, s.DeliveryLocation, s.TrackingNumber} {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

func compareBy(a, b *domain.Shipment, col string) int {
	switch col {
	case "id":
		return strings.Compare(a.ID, b.ID)
	case "shipper_name":
		return strings.Compare(a.ShipperName, b.ShipperName)
	case "carrier_name":
		return strings.Compare(a.CarrierName, b.CarrierName)
	case "pickup_location":
		return strings.Compare(a.PickupLocation, b.PickupLocation)
	case "pickup_date":
		return strings.Compare(a.PickupDate, b.PickupDate)
	case "delivery_location":
		return strings.Compare(a.DeliveryLocation, b.DeliveryLocation)
	case "delivery_date":
		return strings.Compare(a.DeliveryDate, b.DeliveryDate)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "priority":
		return strings.Compare(string(a.Priority), string(b.Priority))
	case "tracking_number":
		return strings.Compare(a.TrackingNumber, b.TrackingNumber)
	case "rate":
		return cmp.Compare(a.Rate, b.Rate)
	case "weight":
		return cmp.Compare(a.Weight, b.Weight)
	case "dimensions":
		return strings.Compare(a.Dimensions, b.Dimensions)
	case "flagged":
		switch {
		case a.Flagged == b.Flagged:
			return 0
		case !a.Flagged:
			return -1
		default:
			return 1
		}
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (r memShipments) List(ctx context.Context, q domain.ShipmentQuery) ([]domain.Shipment, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	hits := make([]domain.Shipment, 0)
	for _, s := range r.m.shipments {
		if matches(&s, q.Filter) {
			hits = append(hits, s)
		}
	}
	col, ok := domain.SortableFields[q.Sort.Field]
	if !ok {
		col = "created_at"
	}
	desc := q.Sort.Order != domain.SortAsc
	slices.SortFunc(hits, func(a, b domain.Shipment) int {
		c := compareBy(&a, &b, col)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	})

	total := int64(len(hits))
	start := min(max(q.Offset, 0), len(hits))
	end := len(hits)
	if q.Limit > 0 {
		end = min(start+q.Limit, len(hits))
	}
	return hits[start:end], total, nil
}

func (r memShipments) FindByID(ctx context.Context, id string) (*domain.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	s, ok := r.m.shipments[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r memShipments) FindJoined(ctx context.Context, id string) (*domain.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	s, ok := r.m.shipments[id]
	if !ok {
		return nil, nil
	}
	s.TrackingEvents = sortedEvents(r.m.events[id])
	if s.CreatedByID != nil {
		if u, ok := r.m.users[*s.CreatedByID]; ok {
			s.CreatedBy = &u
		}
	}
	if s.UpdatedByID != nil {
		if u, ok := r.m.users[*s.UpdatedByID]; ok {
			s.UpdatedBy = &u
		}
	}
	return &s, nil
}

func (r memShipments) checkTracking(s *domain.Shipment) error {
	for _, ex := range r.m.shipments {
		if ex.ID != s.ID && ex.TrackingNumber == s.TrackingNumber {
			return fmt.Errorf("tracking number %s: %w", s.TrackingNumber, domain.ErrDuplicate)
		}
	}
	return nil
}

func stripAssociations(s domain.Shipment) domain.Shipment {
	s.CreatedBy, s.UpdatedBy, s.TrackingEvents = nil, nil, nil
	return s
}

func (r memShipments) Create(ctx context.Context, s *domain.Shipment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.shipments[s.ID]; ok {
		return fmt.Errorf("create shipment %s: %w", s.ID, domain.ErrDuplicate)
	}
	if err := r.checkTracking(s); err != nil {
		return err
	}
	r.m.shipments[s.ID] = stripAssociations(*s)
	return nil
}

func (r memShipments) Update(ctx context.Context, s *domain.Shipment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.checkTracking(s); err != nil {
		return err
	}
	r.m.shipments[s.ID] = stripAssociations(*s)
	return nil
}

func (r memShipments) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.events, id)
	delete(r.m.shipments, id)
	return nil
}

func (r memShipments) AddEvent(ctx context.Context, e *domain.TrackingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.shipments[e.ShipmentID]; !ok {
		return fmt.Errorf("add tracking event: shipment %s does not exist", e.ShipmentID)
	}
	r.m.events[e.ShipmentID] = append(r.m.events[e.ShipmentID], *e)
	return nil
}

func (r memShipments) EventsByShipmentIDs(ctx context.Context, ids []string) ([]domain.TrackingEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []domain.TrackingEvent
	for _, id := range ids {
		out = append(out, r.m.events[id]...)
	}
	return sortedEvents(out), nil
}

func (r memShipments) Stats(ctx context.Context) (*domain.ShipmentStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	sm := map[domain.ShipmentStatus]int64{}
	pm := map[domain.ShipmentPriority]int64{}
	var revenue float64
	for _, s := range r.m.shipments {
		sm[s.Status]++
		pm[s.Priority]++
		revenue += s.Rate
	}
	return domain.FillStats(int64(len(r.m.shipments)), sm, pm, revenue), nil
}

// sortedEvents 返回按时间倒序的副本
func sortedEvents(in []domain.TrackingEvent) []domain.TrackingEvent {
	out := make([]domain.TrackingEvent, len(in))
	copy(out, in)
	slices.SortStableFunc(out, func(a, b domain.TrackingEvent) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return out
}
