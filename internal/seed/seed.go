// Package seed fills a store with two accounts and randomized demo shipments.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"tms-graphql-api/internal/domain"
	"tms-graphql-api/pkg/utils"
)

var (
	carriers  = []string{"FedEx", "UPS", "DHL", "USPS", "Blue Dart", "XPO Logistics"}
	shippers  = []string{"ABC Corp", "XYZ Ltd", "Global Shipping Inc", "Tech Solutions", "Fashion Retail"}
	locations = []string{
		"New York, NY", "Los Angeles, CA", "Chicago, IL", "Houston, TX", "Phoenix, AZ",
		"Philadelphia, PA", "San Antonio, TX", "San Diego, CA", "Dallas, TX", "San Jose, CA",
		"Mumbai, India", "Delhi, India", "Bangalore, India", "London, UK", "Paris, France",
	}
	eventLabels = []string{"In Transit", "Out for Delivery", "Arrived at Hub", "Departed"}
	eventVerbs  = []string{"scanned", "arrived", "departed", "in transit"}
)

type Options struct {
	AdminEmail       string
	AdminPassword    string
	EmployeeEmail    string
	EmployeePassword string
	Shipments        int
	BcryptCost       int
	Workers          int
	Rand             *rand.Rand
	Now              time.Time
}

type Result struct {
	Admin     *domain.User
	Employee  *domain.User
	Shipments int
	Events    int
}

// Run 已存在的账号会被复用，运单总是新增
func Run(ctx context.Context, users domain.UserRepository, ships domain.ShipmentRepository, o Options, l *zap.Logger) (*Result, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x7a3))
	}
	if o.Now.IsZero() {
		o.Now = time.Now().UTC()
	}
	if o.Workers <= 0 {
		o.Workers = 8
	}

	admin, err := ensureUser(ctx, users, o.AdminEmail, o.AdminPassword, "Admin User", domain.RoleAdmin, o.BcryptCost)
	if err != nil {
		return nil, err
	}
	employee, err := ensureUser(ctx, users, o.EmployeeEmail, o.EmployeePassword, "Employee User", domain.RoleEmployee, o.BcryptCost)
	if err != nil {
		return nil, err
	}

	batch := Generate(o.Rand, o.Shipments, []string{admin.ID, employee.ID}, o.Now)
	res := &Result{Admin: admin, Employee: employee, Shipments: len(batch)}

	p := pool.New().WithMaxGoroutines(o.Workers).WithContext(ctx).WithCancelOnError()
	for _, item := range batch {
		res.Events += len(item.Events)
		p.Go(func(ctx context.Context) error {
			if err := ships.Create(ctx, &item.Shipment); err != nil {
				return err
			}
			for i := range item.Events {
				if err := ships.AddEvent(ctx, &item.Events[i]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("seed shipments: %w", err)
	}
	l.Info("seed done", zap.Int("shipments", res.Shipments), zap.Int("events", res.Events))
	return res, nil
}

func ensureUser(ctx context.Context, users domain.UserRepository, email, password, name string, role domain.Role, cost int) (*domain.User, error) {
	u, err := users.FindByEmail(ctx, email)
	if err != nil || u != nil {
		return u, err
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return nil, err
	}
	u = &domain.User{ID: utils.NewID(), Email: email, PasswordHash: hash, Name: name, Role: role}
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

type Item struct {
	Shipment domain.Shipment
	Events   []domain.TrackingEvent
}

func pick[T any](r *rand.Rand, list []T) T { return list[r.IntN(len(list))] }

func trackingNumber(r *rand.Rand) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	var b strings.Builder
	b.WriteString("TRK")
	for i := 0; i < 9; i++ {
		b.WriteByte(alphabet[r.IntN(len(alphabet))])
	}
	return b.String()
}

// Generate 生成 n 条运单，每条 1–5 个事件；取货日期在 2024-01-01 与 now 之间
func Generate(r *rand.Rand, n int, userIDs []string, now time.Time) []Item {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	span := now.Sub(start)
	if span <= 0 {
		span = 24 * time.Hour
	}
	seen := make(map[string]struct{}, n)
	out := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		pickup := start.Add(time.Duration(r.Int64N(int64(span)))).Truncate(24 * time.Hour)
		transit := max(now.Sub(pickup), 0)
		delivery := pickup.Add(time.Duration(r.Int64N(int64(transit) + 1))).Truncate(24 * time.Hour)

		tn := trackingNumber(r)
		for _, dup := seen[tn]; dup; _, dup = seen[tn] {
			tn = trackingNumber(r)
		}
		seen[tn] = struct{}{}

		from := pick(r, locations)
		to := pick(r, locations)
		for to == from {
			to = pick(r, locations)
		}
		createdBy, updatedBy := pick(r, userIDs), pick(r, userIDs)
		created := now.Add(-time.Duration(n-i) * time.Minute).Truncate(time.Millisecond)

		s := domain.Shipment{
			ID:               utils.NewID(),
			ShipperName:      pick(r, shippers),
			CarrierName:      pick(r, carriers),
			PickupLocation:   from,
			PickupDate:       pickup.Format("2006-01-02"),
			DeliveryLocation: to,
			DeliveryDate:     delivery.Format("2006-01-02"),
			Status:           pick(r, domain.AllStatuses),
			Priority:         pick(r, domain.AllPriorities),
			TrackingNumber:   tn,
			Rate:             float64(r.IntN(5000) + 500),
			Weight:           float64(r.IntN(1000) + 10),
			Dimensions:       fmt.Sprintf("%dx%dx%d cm", r.IntN(50)+10, r.IntN(50)+10, r.IntN(50)+10),
			Flagged:          r.Float64() > 0.8,
			CreatedAt:        created,
			UpdatedAt:        created,
			CreatedByID:      &createdBy,
			UpdatedByID:      &updatedBy,
		}
		if r.Float64() > 0.7 {
			note := "Handle with care - Fragile items"
			s.SpecialInstructions = &note
		}

		events := make([]domain.TrackingEvent, r.IntN(5)+1)
		for j := range events {
			events[j] = domain.TrackingEvent{
				ID:          utils.NewID(),
				ShipmentID:  s.ID,
				Timestamp:   pickup.AddDate(0, 0, j),
				Location:    pick(r, locations),
				Status:      pick(r, eventLabels),
				Description: fmt.Sprintf("Package %s at facility", pick(r, eventVerbs)),
			}
		}
		out = append(out, Item{Shipment: s, Events: events})
	}
	return out
}
