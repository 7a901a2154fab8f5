package seed

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tms-graphql-api/internal/domain"
	"tms-graphql-api/internal/repo"
	"tms-graphql-api/pkg/utils"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestGenerateIsDeterministicAndValid(t *testing.T) {
	a := Generate(rand.New(rand.NewPCG(1, 2)), 40, []string{"u1", "u2"}, now)
	b := Generate(rand.New(rand.NewPCG(1, 2)), 40, []string{"u1", "u2"}, now)
	require.Len(t, a, 40)
	assert.Equal(t, a[0].Shipment.TrackingNumber, b[0].Shipment.TrackingNumber)

	seen := map[string]bool{}
	for _, it := range a {
		s := it.Shipment
		assert.False(t, seen[s.TrackingNumber])
		seen[s.TrackingNumber] = true
		assert.Len(t, s.TrackingNumber, 12)
		assert.True(t, s.Status.Valid())
		assert.True(t, s.Priority.Valid())
		assert.NotEqual(t, s.PickupLocation, s.DeliveryLocation)
		assert.LessOrEqual(t, s.PickupDate, s.DeliveryDate)
		assert.NoError(t, domain.Validate(domain.CreateShipmentInput{
			ShipperName: s.ShipperName, CarrierName: s.CarrierName,
			PickupLocation: s.PickupLocation, PickupDate: s.PickupDate,
			DeliveryLocation: s.DeliveryLocation, DeliveryDate: s.DeliveryDate,
			TrackingNumber: s.TrackingNumber, Rate: s.Rate, Weight: s.Weight, Dimensions: s.Dimensions,
		}))
		assert.GreaterOrEqual(t, len(it.Events), 1)
		assert.LessOrEqual(t, len(it.Events), 5)
		for _, e := range it.Events {
			assert.Equal(t, s.ID, e.ShipmentID)
		}
	}
}

func TestRunCreatesAccountsOnce(t *testing.T) {
	store := repo.NewMemoryStore()
	ctx := context.Background()
	o := Options{
		AdminEmail: "admin@tms.com", AdminPassword: "admin123",
		EmployeeEmail: "employee@tms.com", EmployeePassword: "employee123",
		Shipments: 12, BcryptCost: bcrypt.MinCost, Workers: 4,
		Rand: rand.New(rand.NewPCG(7, 7)), Now: now,
	}

	res, err := Run(ctx, store, store.Shipments(), o, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, res.Admin.Role)
	assert.Equal(t, domain.RoleEmployee, res.Employee.Role)
	assert.True(t, utils.CheckPassword("admin123", res.Admin.PasswordHash))
	assert.Equal(t, 12, res.Shipments)

	st, err := store.Shipments().Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 12, st.TotalShipments)

	evs, err := store.Shipments().EventsByShipmentIDs(ctx, allIDs(t, store))
	require.NoError(t, err)
	assert.Len(t, evs, res.Events)

	o.Rand = rand.New(rand.NewPCG(8, 8))
	again, err := Run(ctx, store, store.Shipments(), o, nil)
	require.NoError(t, err)
	assert.Equal(t, res.Admin.ID, again.Admin.ID)
	st, err = store.Shipments().Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 24, st.TotalShipments)
}

func allIDs(t *testing.T, store *repo.MemoryStore) []string {
	t.Helper()
	list, _, err := store.Shipments().List(context.Background(), domain.ShipmentQuery{})
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	return ids
}
