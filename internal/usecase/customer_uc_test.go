package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ERPlora/module-customers/internal/adapters/repo/postgres"
	"github.com/ERPlora/module-customers/internal/domain"
	"github.com/ERPlora/module-customers/internal/testutil"
)

func newUC(t *testing.T, withSales bool) (*CustomerUC, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	uc := &CustomerUC{Customers: postgres.NewCustomerRepo(db)}
	if withSales {
		uc.Sales = postgres.NewSaleSource(db)
	}
	return uc, db
}

func TestCreateTrimsAndActivates(t *testing.T) {
	uc, _ := newUC(t, false)
	ctx := context.Background()

	c, err := uc.Create(ctx, CustomerInput{
		Name:  "  María García  ",
		Email: " maria@example.com ",
		Phone: " 600123456 ",
		TaxID: " 12345678Z ",
	})
	require.NoError(t, err)
	assert.Equal(t, "María García", c.Name)
	assert.Equal(t, "maria@example.com", c.Email)
	assert.Equal(t, "600123456", c.Phone)
	assert.Equal(t, "12345678Z", c.TaxID)
	assert.True(t, c.IsActive)

	got, err := uc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Zero(t, got.TotalSpent)
	assert.Zero(t, got.VisitCount)
}

func TestCreateRequiresName(t *testing.T) {
	uc, db := newUC(t, false)

	_, err := uc.Create(context.Background(), CustomerInput{Name: "   ", Email: "x@example.com"})
	assert.ErrorIs(t, err, domain.ErrNameRequired)

	var n int64
	db.Model(&domain.Customer{}).Count(&n)
	assert.Zero(t, n)
}

func TestListDefaultsToActive(t *testing.T) {
	uc, db := newUC(t, false)
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.Customer{Name: "Activa", IsActive: true}).Error)
	require.NoError(t, db.Create(&domain.Customer{Name: "Baja", IsActive: false}).Error)

	got, err := uc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Activa", got[0].Name)

	all, err := uc.List(ctx, domain.ListFilter{Status: "cualquiercosa"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListTrimsSearch(t *testing.T) {
	uc, db := newUC(t, false)

	require.NoError(t, db.Create(&domain.Customer{Name: "Juan Pérez", IsActive: true}).Error)

	got, err := uc.List(context.Background(), domain.ListFilter{Search: "  juan  "})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestListCapsAtHundred(t *testing.T) {
	uc, db := newUC(t, false)
	ctx := context.Background()

	for i := 0; i < 105; i++ {
		require.NoError(t, db.Create(&domain.Customer{Name: fmt.Sprintf("Cliente %03d", i), IsActive: true}).Error)
	}

	got, err := uc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 100)

	// pedir más del tope tampoco lo supera
	got, err = uc.List(ctx, domain.ListFilter{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, got, 100)
}

func TestCounts(t *testing.T) {
	uc, db := newUC(t, false)

	require.NoError(t, db.Create(&domain.Customer{Name: "A", IsActive: true}).Error)
	require.NoError(t, db.Create(&domain.Customer{Name: "B", IsActive: true}).Error)
	require.NoError(t, db.Create(&domain.Customer{Name: "C", IsActive: false}).Error)

	active, inactive, err := uc.Counts(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, active)
	assert.EqualValues(t, 1, inactive)
}

func TestUpdateReplacesFields(t *testing.T) {
	uc, _ := newUC(t, false)
	ctx := context.Background()

	c, err := uc.Create(ctx, CustomerInput{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)

	updated, err := uc.Update(ctx, c.ID, CustomerInput{
		Name:  " Ana Ruiz ",
		Phone: "622000111",
		Notes: "prefiere factura",
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz", updated.Name)
	assert.Equal(t, "622000111", updated.Phone)
	assert.Equal(t, "prefiere factura", updated.Notes)
	// los campos no enviados quedan vacíos: la edición manda el set completo
	assert.Empty(t, updated.Email)
	assert.False(t, updated.IsActive)

	got, err := uc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz", got.Name)
	assert.False(t, got.IsActive)
}

func TestUpdateEmptyNameLeavesRow(t *testing.T) {
	uc, _ := newUC(t, false)
	ctx := context.Background()

	c, err := uc.Create(ctx, CustomerInput{Name: "Ana", Phone: "600000000"})
	require.NoError(t, err)

	_, err = uc.Update(ctx, c.ID, CustomerInput{Name: "  ", Phone: "999999999"}, true)
	assert.ErrorIs(t, err, domain.ErrNameRequired)

	got, err := uc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, "600000000", got.Phone)
}

func TestUpdateNotFound(t *testing.T) {
	uc, _ := newUC(t, false)
	_, err := uc.Update(context.Background(), 12345, CustomerInput{Name: "X"}, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSoftDeleteKeepsRow(t *testing.T) {
	uc, _ := newUC(t, false)
	ctx := context.Background()

	c, err := uc.Create(ctx, CustomerInput{Name: "Ana"})
	require.NoError(t, err)

	deleted, err := uc.SoftDelete(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, deleted.IsActive)

	got, err := uc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "Ana", got.Name)
}

func TestUpdateStatsWithoutSource(t *testing.T) {
	uc, db := newUC(t, false)
	ctx := context.Background()

	c := domain.Customer{Name: "María García", IsActive: true, TotalSpent: 10, VisitCount: 1}
	require.NoError(t, db.Create(&c).Error)
	// hay ventas en la tabla, pero sin fuente cableada no se miran
	require.NoError(t, db.Create(&domain.Sale{CustomerName: "María García", Status: domain.SaleStatusCompleted, Total: 60}).Error)

	got, err := uc.UpdateStats(ctx, c.ID)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, got.TotalSpent, 0.001)
	assert.Equal(t, 1, got.VisitCount)

	reloaded, err := uc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, reloaded.TotalSpent, 0.001)
	assert.Equal(t, 1, reloaded.VisitCount)
}

func TestUpdateStatsRecomputes(t *testing.T) {
	uc, db := newUC(t, true)
	ctx := context.Background()

	c, err := uc.Create(ctx, CustomerInput{Name: "María García"})
	require.NoError(t, err)

	base := time.Date(2026, 4, 2, 18, 30, 0, 0, time.UTC)
	require.NoError(t, db.Create(&domain.Sale{CustomerName: "María García", Status: domain.SaleStatusCompleted, Total: 60, CreatedAt: base}).Error)
	require.NoError(t, db.Create(&domain.Sale{CustomerName: "María García", Status: domain.SaleStatusCompleted, Total: 40, CreatedAt: base.AddDate(0, 0, 2)}).Error)
	require.NoError(t, db.Create(&domain.Sale{CustomerName: "María García", Status: "pending", Total: 99, CreatedAt: base.AddDate(0, 0, 3)}).Error)

	got, err := uc.UpdateStats(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.VisitCount)
	assert.InDelta(t, 100.0, got.TotalSpent, 0.001)
	assert.InDelta(t, 50.0, got.AveragePurchase(), 0.001)
	require.NotNil(t, got.LastPurchaseAt)
	assert.WithinDuration(t, base.AddDate(0, 0, 2), *got.LastPurchaseAt, time.Second)

	reloaded, err := uc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.VisitCount)
	assert.InDelta(t, 100.0, reloaded.TotalSpent, 0.001)
}

func TestUpdateStatsWithoutCompletedSales(t *testing.T) {
	uc, db := newUC(t, true)
	ctx := context.Background()

	lp := time.Date(2025, 12, 24, 20, 0, 0, 0, time.UTC)
	c := domain.Customer{Name: "Ana", IsActive: true, TotalSpent: 500, VisitCount: 5, LastPurchaseAt: &lp}
	require.NoError(t, db.Create(&c).Error)

	got, err := uc.UpdateStats(ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, got.VisitCount)
	assert.Zero(t, got.TotalSpent)
	// la fecha de última compra no se pisa cuando no hay ventas
	require.NotNil(t, got.LastPurchaseAt)
	assert.WithinDuration(t, lp, *got.LastPurchaseAt, time.Second)
}

func TestUpdateStatsNotFound(t *testing.T) {
	uc, _ := newUC(t, true)
	_, err := uc.UpdateStats(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecentPurchasesWithoutSource(t *testing.T) {
	uc, _ := newUC(t, false)

	got, err := uc.RecentPurchases(context.Background(), &domain.Customer{Name: "Ana"}, 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRecentPurchasesDefaultLimit(t *testing.T) {
	uc, db := newUC(t, true)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		require.NoError(t, db.Create(&domain.Sale{
			CustomerName: "Ana",
			Status:       domain.SaleStatusCompleted,
			Total:        float64(i + 1),
			CreatedAt:    base.AddDate(0, 0, i),
		}).Error)
	}

	got, err := uc.RecentPurchases(ctx, &domain.Customer{Name: "Ana"}, 0)
	require.NoError(t, err)
	assert.Len(t, got, 10)
	assert.InDelta(t, 12.0, got[0].Total, 0.001)
}

func TestExportActiveSorted(t *testing.T) {
	uc, db := newUC(t, false)

	require.NoError(t, db.Create(&domain.Customer{Name: "Zoe", IsActive: true}).Error)
	require.NoError(t, db.Create(&domain.Customer{Name: "Ana", IsActive: true}).Error)
	require.NoError(t, db.Create(&domain.Customer{Name: "Baja", IsActive: false}).Error)

	got, err := uc.ExportActive(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ana", got[0].Name)
	assert.Equal(t, "Zoe", got[1].Name)
}
