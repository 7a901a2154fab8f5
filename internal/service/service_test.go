package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tms-graphql-api/internal/core/auth"
	"tms-graphql-api/internal/core/cache"
	"tms-graphql-api/internal/domain"
	"tms-graphql-api/internal/repo"
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	store *repo.MemoryStore
	authS *AuthService
	ships *ShipmentService
	jwt   *auth.JWTer
}

func newFixture(t *testing.T, c *cache.Cache) *fixture {
	t.Helper()
	store := repo.NewMemoryStore()
	j := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "tms"}
	return &fixture{
		store: store,
		authS: NewAuthService(store, j, bcrypt.MinCost, nil),
		ships: NewShipmentService(store.Shipments(), c, time.Minute, nil),
		jwt:   j,
	}
}

func createInput(tracking string) domain.CreateShipmentInput {
	return domain.CreateShipmentInput{
		ShipperName:      "Acme",
		CarrierName:      "FedEx",
		PickupLocation:   "Chicago, IL",
		PickupDate:       "2025-03-01",
		DeliveryLocation: "Dallas, TX",
		DeliveryDate:     "2025-03-04",
		TrackingNumber:   tracking,
		Rate:             120,
		Weight:           300,
		Dimensions:       "48x40x48",
	}
}

func TestPaginate(t *testing.T) {
	cases := []struct {
		page, limit *int
		wantP       int
		wantL       int
	}{
		{nil, nil, 1, 20},
		{ptr(0), ptr(0), 1, 20},
		{ptr(-3), ptr(-1), 1, 20},
		{ptr(3), ptr(500), 3, 100},
		{ptr(2), ptr(7), 2, 7},
	}
	for _, c := range cases {
		p, l := Paginate(c.page, c.limit)
		assert.Equal(t, c.wantP, p)
		assert.Equal(t, c.wantL, l)
	}

	pi := NewPageInfo(1, 20, 0)
	assert.Equal(t, PageInfo{TotalPages: 0, CurrentPage: 1}, pi)
	pi = NewPageInfo(2, 20, 41)
	assert.True(t, pi.HasNextPage)
	assert.True(t, pi.HasPreviousPage)
	assert.Equal(t, 3, pi.TotalPages)
	pi = NewPageInfo(3, 20, 41)
	assert.False(t, pi.HasNextPage)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	out, err := f.authS.Register(ctx, domain.RegisterInput{Email: "alice@x.io", Password: "secret1", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEmployee, out.User.Role)
	claims, err := f.jwt.Parse(out.Token)
	require.NoError(t, err)
	assert.Equal(t, out.User.ID, claims.UserID)
	assert.Equal(t, domain.RoleEmployee, claims.Role)

	_, err = f.authS.Register(ctx, domain.RegisterInput{Email: "alice@x.io", Password: "another", Name: "A"})
	assert.True(t, domain.IsKind(err, domain.KindAlreadyExists))

	_, err = f.authS.Register(ctx, domain.RegisterInput{Email: "not-an-email", Password: "secret1", Name: "B"})
	assert.True(t, domain.IsKind(err, domain.KindBadInput))

	got, err := f.authS.Login(ctx, domain.LoginInput{Email: "alice@x.io", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, out.User.ID, got.User.ID)

	_, err = f.authS.Login(ctx, domain.LoginInput{Email: "alice@x.io", Password: "wrong!!"})
	assert.True(t, domain.IsKind(err, domain.KindInvalidCredentials))
	_, err = f.authS.Login(ctx, domain.LoginInput{Email: "nobody@x.io", Password: "secret1"})
	assert.True(t, domain.IsKind(err, domain.KindInvalidCredentials))
	assert.EqualError(t, err, "Invalid credentials")

	me, err := f.authS.Me(ctx, auth.Identity{UserID: out.User.ID})
	require.NoError(t, err)
	assert.Equal(t, "Alice", me.Name)
}

func TestCreateStampsCallerAndDefaults(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := auth.Identity{UserID: "u-alice", Role: domain.RoleEmployee}
	require.NoError(t, f.store.Create(ctx, &domain.User{ID: "u-alice", Email: "alice@x.io", Name: "Alice", Role: domain.RoleEmployee}))

	s, err := f.ships.Create(ctx, alice, createInput("TRK1"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, s.Status)
	assert.Equal(t, domain.PriorityMedium, s.Priority)
	assert.False(t, s.Flagged)
	require.NotNil(t, s.CreatedByID)
	assert.Equal(t, "u-alice", *s.CreatedByID)
	assert.Equal(t, "u-alice", *s.UpdatedByID)
	require.NotNil(t, s.CreatedBy)
	assert.Equal(t, "Alice", s.CreatedBy.Name)
	assert.Empty(t, s.TrackingEvents)

	_, err = f.ships.Create(ctx, alice, createInput("TRK1"))
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	bad := createInput("TRK2")
	bad.PickupDate = "next tuesday"
	_, err = f.ships.Create(ctx, alice, bad)
	assert.True(t, domain.IsKind(err, domain.KindBadInput))
}

func TestUpdateRestampsUpdaterOnly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := auth.Identity{UserID: "u-alice"}
	bob := auth.Identity{UserID: "u-bob"}

	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f.ships.Now = func() time.Time { return fixed }

	s, err := f.ships.Create(ctx, alice, createInput("TRK1"))
	require.NoError(t, err)

	// 时钟不动，updatedAt 也必须前进
	up, err := f.ships.Update(ctx, bob, s.ID, domain.UpdateShipmentInput{Status: ptr(domain.StatusDelayed)})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelayed, up.Status)
	assert.Equal(t, "u-alice", *up.CreatedByID)
	assert.Equal(t, "u-bob", *up.UpdatedByID)
	assert.True(t, up.UpdatedAt.After(s.UpdatedAt))
	assert.True(t, up.CreatedAt.Equal(s.CreatedAt))
	assert.Equal(t, "Acme", up.ShipperName)

	_, err = f.ships.Update(ctx, bob, "missing", domain.UpdateShipmentInput{})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	assert.EqualError(t, err, "Shipment not found")
}

func TestDeleteAndTrackingEvents(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := auth.Identity{UserID: "u-alice"}

	s, err := f.ships.Create(ctx, alice, createInput("TRK1"))
	require.NoError(t, err)

	for i, ts := range []string{"2025-03-01T08:00:00Z", "2025-03-02T09:30", "2025-03-01"} {
		out, err := f.ships.AddTrackingEvent(ctx, s.ID, domain.AddTrackingEventInput{
			Timestamp: ts, Location: fmt.Sprintf("hub-%d", i), Status: "IN_TRANSIT", Description: "scan",
		})
		require.NoError(t, err)
		assert.Len(t, out.TrackingEvents, i+1)
	}
	got, err := f.ships.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"hub-1", "hub-0", "hub-2"}, []string{
		got.TrackingEvents[0].Location, got.TrackingEvents[1].Location, got.TrackingEvents[2].Location,
	})

	_, err = f.ships.AddTrackingEvent(ctx, "missing", domain.AddTrackingEventInput{
		Timestamp: "2025-03-01", Location: "x", Status: "x", Description: "x",
	})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	ok, err := f.ships.Delete(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	got, err = f.ships.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	ok, err = f.ships.Delete(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListRejectsUnknownSortField(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.ships.List(context.Background(), ListParams{Sort: &domain.ShipmentSort{Field: "password", Order: domain.SortAsc}})
	assert.True(t, domain.IsKind(err, domain.KindBadInput))
}

func TestListCapsLimit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := auth.Identity{UserID: "u-alice"}
	for i := 0; i < 105; i++ {
		_, err := f.ships.Create(ctx, alice, createInput(fmt.Sprintf("TRK%03d", i)))
		require.NoError(t, err)
	}
	page, err := f.ships.List(ctx, ListParams{Limit: ptr(500)})
	require.NoError(t, err)
	assert.Len(t, page.Nodes, 100)
	assert.EqualValues(t, 105, page.PageInfo.TotalCount)
	assert.Equal(t, 2, page.PageInfo.TotalPages)
	assert.True(t, page.PageInfo.HasNextPage)

	page, err = f.ships.List(ctx, ListParams{Page: ptr(2), Limit: ptr(100)})
	require.NoError(t, err)
	assert.Len(t, page.Nodes, 5)
	assert.False(t, page.PageInfo.HasNextPage)
	assert.True(t, page.PageInfo.HasPreviousPage)
}

func TestStatsCacheInvalidatedOnWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	defer c.Close()
	f := newFixture(t, c)
	ctx := context.Background()
	alice := auth.Identity{UserID: "u-alice"}

	st, err := f.ships.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, st.TotalShipments)
	assert.True(t, mr.Exists("tms:"+statsCacheKey+"@0"))

	_, err = f.ships.Create(ctx, alice, createInput("TRK1"))
	require.NoError(t, err)
	gen, err := mr.Get("tms:" + statsCacheKey + ":gen")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	st, err = f.ships.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.TotalShipments)
	assert.InDelta(t, 120, st.TotalRevenue, 1e-9)
	assert.Equal(t, domain.StatusCount{Status: domain.StatusPending, Count: 1}, st.ByStatus[0])
	assert.Len(t, st.ByPriority, 4)
}
