package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tms-graphql-api/internal/core/database"
	"tms-graphql-api/internal/domain"
)

type backend struct {
	name  string
	users domain.UserRepository
	ships domain.ShipmentRepository
}

func backends(t *testing.T) []backend {
	t.Helper()
	db, err := database.NewGorm(database.Opts{Driver: "sqlite", DSN: "file::memory:", MaxOpenConns: 1, LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })

	mem := NewMemoryStore()
	return []backend{
		{name: "gorm", users: NewUserRepo(db), ships: NewShipmentRepo(db)},
		{name: "memory", users: mem, ships: mem.Shipments()},
	}
}

var base = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// seed 写入两名用户与五条运单，createdAt 依次递增
func seed(t *testing.T, b backend) (admin, alice domain.User, ships []domain.Shipment) {
	t.Helper()
	ctx := context.Background()
	admin = domain.User{ID: "u-admin", Email: "admin@tms.com", PasswordHash: "x", Name: "Admin", Role: domain.RoleAdmin}
	alice = domain.User{ID: "u-alice", Email: "alice@tms.com", PasswordHash: "x", Name: "Alice", Role: domain.RoleEmployee}
	require.NoError(t, b.users.Create(ctx, &admin))
	require.NoError(t, b.users.Create(ctx, &alice))

	rows := []struct {
		carrier  string
		shipper  string
		status   domain.ShipmentStatus
		priority domain.ShipmentPriority
		rate     float64
		flagged  bool
	}{
		{"FedEx Freight", "Acme", domain.StatusPending, domain.PriorityLow, 100, false},
		{"UPS", "Globex", domain.StatusInTransit, domain.PriorityHigh, 250.5, true},
		{"DHL", "fedex returns", domain.StatusInTransit, domain.PriorityMedium, 80, false},
		{"Maersk", "Initech", domain.StatusDelivered, domain.PriorityUrgent, 1200, false},
		{"XPO", "Umbrella", domain.StatusPending, domain.PriorityMedium, 40, true},
	}
	for i, r := range rows {
		s := domain.Shipment{
			ID:               fmt.Sprintf("s-%d", i+1),
			ShipperName:      r.shipper,
			CarrierName:      r.carrier,
			PickupLocation:   "Chicago, IL",
			PickupDate:       "2025-03-01",
			DeliveryLocation: "Dallas, TX",
			DeliveryDate:     "2025-03-05",
			Status:           r.status,
			Priority:         r.priority,
			TrackingNumber:   fmt.Sprintf("TRK%04d", i+1),
			Rate:             r.rate,
			Weight:           500,
			Dimensions:       "48x40x48",
			Flagged:          r.flagged,
			CreatedAt:        base.Add(time.Duration(i) * time.Hour),
			UpdatedAt:        base.Add(time.Duration(i) * time.Hour),
			CreatedByID:      ptr(alice.ID),
			UpdatedByID:      ptr(alice.ID),
		}
		require.NoError(t, b.ships.Create(ctx, &s))
		ships = append(ships, s)
	}
	return admin, alice, ships
}

func ids(list []domain.Shipment) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.ID)
	}
	return out
}

func TestUsers(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			admin, alice, _ := seed(t, b)

			u, err := b.users.FindByEmail(ctx, "alice@tms.com")
			require.NoError(t, err)
			require.NotNil(t, u)
			assert.Equal(t, alice.ID, u.ID)

			u, err = b.users.FindByID(ctx, "missing")
			require.NoError(t, err)
			assert.Nil(t, u)

			list, err := b.users.FindByIDs(ctx, []string{admin.ID, "missing", alice.ID})
			require.NoError(t, err)
			assert.Len(t, list, 2)

			dup := domain.User{ID: "u-other", Email: "alice@tms.com", PasswordHash: "x", Name: "A2", Role: domain.RoleEmployee}
			assert.ErrorIs(t, b.users.Create(ctx, &dup), domain.ErrDuplicate)
		})
	}
}

func TestListDefaultsToNewestFirst(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			seed(t, b)
			list, total, err := b.ships.List(context.Background(), domain.ShipmentQuery{Limit: 20})
			require.NoError(t, err)
			assert.EqualValues(t, 5, total)
			assert.Equal(t, []string{"s-5", "s-4", "s-3", "s-2", "s-1"}, ids(list))
			assert.Empty(t, list[0].TrackingEvents)
		})
	}
}

func TestListFiltersAndSearch(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, b)

			list, total, err := b.ships.List(ctx, domain.ShipmentQuery{
				Filter: domain.ShipmentFilter{Status: ptr(domain.StatusInTransit)},
				Limit:  1,
			})
			require.NoError(t, err)
			assert.EqualValues(t, 2, total)
			assert.Len(t, list, 1)

			// carrier 与 shipper 都会命中，大小写无关
			list, total, err = b.ships.List(ctx, domain.ShipmentQuery{
				Filter: domain.ShipmentFilter{Search: "FEDEX"},
				Limit:  20,
			})
			require.NoError(t, err)
			assert.EqualValues(t, 2, total)
			assert.ElementsMatch(t, []string{"s-1", "s-3"}, ids(list))

			list, _, err = b.ships.List(ctx, domain.ShipmentQuery{
				Filter: domain.ShipmentFilter{Search: "trk0004"},
				Limit:  20,
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"s-4"}, ids(list))

			list, total, err = b.ships.List(ctx, domain.ShipmentQuery{
				Filter: domain.ShipmentFilter{Flagged: ptr(true), Priority: ptr(domain.PriorityMedium)},
				Limit:  20,
			})
			require.NoError(t, err)
			assert.EqualValues(t, 1, total)
			assert.Equal(t, []string{"s-5"}, ids(list))
		})
	}
}

func TestListSortAndPage(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, b)

			list, _, err := b.ships.List(ctx, domain.ShipmentQuery{
				Sort:  domain.ShipmentSort{Field: "rate", Order: domain.SortAsc},
				Limit: 20,
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"s-5", "s-3", "s-1", "s-2", "s-4"}, ids(list))

			list, total, err := b.ships.List(ctx, domain.ShipmentQuery{
				Sort:   domain.ShipmentSort{Field: "createdAt", Order: domain.SortAsc},
				Offset: 2,
				Limit:  2,
			})
			require.NoError(t, err)
			assert.EqualValues(t, 5, total)
			assert.Equal(t, []string{"s-3", "s-4"}, ids(list))

			// 不在白名单的字段退回默认排序
			list, _, err = b.ships.List(ctx, domain.ShipmentQuery{
				Sort:  domain.ShipmentSort{Field: "password; DROP TABLE", Order: domain.SortDesc},
				Limit: 1,
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"s-5"}, ids(list))
		})
	}
}

func TestJoinedEventsAndDelete(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			_, alice, _ := seed(t, b)

			for i, loc := range []string{"Chicago", "St. Louis", "Dallas"} {
				require.NoError(t, b.ships.AddEvent(ctx, &domain.TrackingEvent{
					ID:          fmt.Sprintf("e-%d", i),
					ShipmentID:  "s-1",
					Timestamp:   base.Add(time.Duration(i) * time.Hour),
					Location:    loc,
					Status:      "IN_TRANSIT",
					Description: "scan",
				}))
			}
			require.NoError(t, b.ships.AddEvent(ctx, &domain.TrackingEvent{
				ID: "e-x", ShipmentID: "s-2", Timestamp: base, Location: "Reno", Status: "PICKED_UP", Description: "x",
			}))

			s, err := b.ships.FindJoined(ctx, "s-1")
			require.NoError(t, err)
			require.NotNil(t, s)
			require.Len(t, s.TrackingEvents, 3)
			assert.Equal(t, "Dallas", s.TrackingEvents[0].Location)
			assert.Equal(t, "Chicago", s.TrackingEvents[2].Location)
			require.NotNil(t, s.CreatedBy)
			assert.Equal(t, alice.Email, s.CreatedBy.Email)

			evs, err := b.ships.EventsByShipmentIDs(ctx, []string{"s-1", "s-2", "s-3"})
			require.NoError(t, err)
			assert.Len(t, evs, 4)

			require.NoError(t, b.ships.Delete(ctx, "s-1"))
			s, err = b.ships.FindJoined(ctx, "s-1")
			require.NoError(t, err)
			assert.Nil(t, s)
			evs, err = b.ships.EventsByShipmentIDs(ctx, []string{"s-1"})
			require.NoError(t, err)
			assert.Empty(t, evs)

			require.NoError(t, b.ships.Delete(ctx, "never-existed"))
		})
	}
}

func TestUpdateAndUniqueTracking(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			admin, _, _ := seed(t, b)

			s, err := b.ships.FindByID(ctx, "s-2")
			require.NoError(t, err)
			require.NotNil(t, s)
			s.Status = domain.StatusDelayed
			s.UpdatedByID = ptr(admin.ID)
			s.UpdatedAt = base.Add(48 * time.Hour)
			require.NoError(t, b.ships.Update(ctx, s))

			got, err := b.ships.FindJoined(ctx, "s-2")
			require.NoError(t, err)
			assert.Equal(t, domain.StatusDelayed, got.Status)
			require.NotNil(t, got.UpdatedBy)
			assert.Equal(t, admin.ID, got.UpdatedBy.ID)
			assert.True(t, got.UpdatedAt.Equal(base.Add(48*time.Hour)))

			s.TrackingNumber = "TRK0001"
			assert.ErrorIs(t, b.ships.Update(ctx, s), domain.ErrDuplicate)
		})
	}
}

func TestStats(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()

			st, err := b.ships.Stats(ctx)
			require.NoError(t, err)
			assert.EqualValues(t, 0, st.TotalShipments)
			assert.Zero(t, st.TotalRevenue)
			assert.Len(t, st.ByStatus, len(domain.AllStatuses))

			seed(t, b)
			st, err = b.ships.Stats(ctx)
			require.NoError(t, err)
			assert.EqualValues(t, 5, st.TotalShipments)
			assert.InDelta(t, 1670.5, st.TotalRevenue, 1e-9)
			assert.Equal(t, []domain.StatusCount{
				{Status: domain.StatusPending, Count: 2},
				{Status: domain.StatusInTransit, Count: 2},
				{Status: domain.StatusDelivered, Count: 1},
				{Status: domain.StatusCancelled, Count: 0},
				{Status: domain.StatusDelayed, Count: 0},
			}, st.ByStatus)
			assert.Equal(t, domain.PriorityCount{Priority: domain.PriorityMedium, Count: 2}, st.ByPriority[1])
		})
	}
}
