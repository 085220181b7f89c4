package ledger_test

import (
	"context"
	"testing"

	"electric-inventory/internal/audit"
	"electric-inventory/internal/dbtest"
	"electric-inventory/internal/errs"
	"electric-inventory/internal/ledger"
	"electric-inventory/internal/models"
	"electric-inventory/internal/scope"
	"electric-inventory/internal/validation"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	svc     *ledger.Service
	branch1 models.Branch
	branch2 models.Branch
	admin   models.User
	user1   models.User
	user2   models.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	f := &fixture{db: db}

	f.branch1 = models.Branch{Name: "Main Branch"}
	f.branch2 = models.Branch{Name: "Downtown Branch"}
	require.NoError(t, db.Create(&f.branch1).Error)
	require.NoError(t, db.Create(&f.branch2).Error)

	f.admin = models.User{BranchID: f.branch1.ID, Username: "admin", PasswordHash: "x", Role: models.RoleAdmin}
	f.user1 = models.User{BranchID: f.branch1.ID, Username: "one", PasswordHash: "x", Role: models.RoleBranch}
	f.user2 = models.User{BranchID: f.branch2.ID, Username: "two", PasswordHash: "x", Role: models.RoleBranch}
	require.NoError(t, db.Create(&f.admin).Error)
	require.NoError(t, db.Create(&f.user1).Error)
	require.NoError(t, db.Create(&f.user2).Error)

	f.svc = ledger.NewService(db, audit.NewWriter(db, zap.NewNop()), zap.NewNop())
	return f
}

func purchase(name string, qty, price int64) ledger.NewPurchase {
	q := decimal.NewFromInt(qty)
	p := decimal.NewFromInt(price)
	return ledger.NewPurchase{
		ProductName:       name,
		Quantity:          q,
		Unit:              "pieces",
		PricePerUnit:      p,
		TotalPrice:        q.Mul(p),
		LowStockThreshold: 10,
		Brand:             "Philips",
	}
}

func TestRecord_StampsActingUserBranch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Record(ctx, purchase("Bulb", 5, 2), f.user2.ID)
	require.NoError(t, err)

	require.NotNil(t, p.BranchID)
	assert.Equal(t, f.branch2.ID, *p.BranchID)
	assert.Equal(t, f.user2.ID, p.UserID)
	assert.False(t, p.IsRemoved)
	require.NotNil(t, p.Branch)
	assert.Equal(t, "Downtown Branch", p.Branch.Name)
	assert.True(t, p.Quantity.Equal(decimal.NewFromInt(5)))
}

func TestRecord_UsesCurrentBranchAfterReassignment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.db.Model(&f.user1).Update("branch_id", f.branch2.ID).Error)

	p, err := f.svc.Record(ctx, purchase("Cable", 1, 3), f.user1.ID)
	require.NoError(t, err)
	require.NotNil(t, p.BranchID)
	assert.Equal(t, f.branch2.ID, *p.BranchID)
}

func TestRecord_UnknownOrRemovedUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Record(ctx, purchase("Bulb", 1, 1), 9999)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, f.db.Model(&f.user1).Update("is_removed", true).Error)
	_, err = f.svc.Record(ctx, purchase("Bulb", 1, 1), f.user1.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRecord_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(p *ledger.NewPurchase)
	}{
		{"zero quantity", func(p *ledger.NewPurchase) { p.Quantity = decimal.Zero; p.TotalPrice = decimal.Zero }},
		{"negative price", func(p *ledger.NewPurchase) { p.PricePerUnit = decimal.NewFromInt(-1) }},
		{"negative threshold", func(p *ledger.NewPurchase) { p.LowStockThreshold = -1 }},
		{"missing product name", func(p *ledger.NewPurchase) { p.ProductName = "" }},
		{"missing unit", func(p *ledger.NewPurchase) { p.Unit = "" }},
		{"total mismatch", func(p *ledger.NewPurchase) { p.TotalPrice = decimal.NewFromInt(999) }},
		{"too many decimals", func(p *ledger.NewPurchase) {
			p.Quantity = decimal.RequireFromString("1.005")
			p.TotalPrice = p.Quantity.Mul(p.PricePerUnit).Round(2)
		}},
		{"quantity overflows column", func(p *ledger.NewPurchase) {
			p.Quantity = decimal.NewFromInt(100_000_000)
			p.PricePerUnit = decimal.RequireFromString("0.01")
			p.TotalPrice = decimal.NewFromInt(1_000_000)
		}},
		{"total overflows column", func(p *ledger.NewPurchase) {
			p.Quantity = decimal.NewFromInt(99_999_999)
			p.PricePerUnit = decimal.NewFromInt(99_999_999)
			p.TotalPrice = p.Quantity.Mul(p.PricePerUnit)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := purchase("Bulb", 5, 2)
			tt.mutate(&in)
			_, err := f.svc.Record(ctx, in, f.user1.ID)
			assert.ErrorIs(t, err, errs.ErrValidation)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Purchase{}).Count(&count).Error)
	assert.Zero(t, count, "nothing is persisted on validation failure")
}

func TestNewPurchase_TotalRoundedToCents(t *testing.T) {
	in := ledger.NewPurchase{
		ProductName:  "Wire",
		Quantity:     decimal.RequireFromString("1.5"),
		Unit:         "meters",
		PricePerUnit: decimal.RequireFromString("0.33"),
		TotalPrice:   decimal.RequireFromString("0.50"),
		Brand:        "Acme",
	}
	assert.NoError(t, in.Validate())
}

func TestNewPurchase_TrailingZerosAreNotExtraDecimals(t *testing.T) {
	in := ledger.NewPurchase{
		ProductName:  "Wire",
		Quantity:     decimal.RequireFromString("5.100"),
		Unit:         "meters",
		PricePerUnit: decimal.RequireFromString("2.000"),
		TotalPrice:   decimal.RequireFromString("10.20"),
		Brand:        "Acme",
	}
	assert.NoError(t, in.Validate())
}

func TestNewPurchase_LargestAmountFits(t *testing.T) {
	in := ledger.NewPurchase{
		ProductName:  "Cable drum",
		Quantity:     decimal.NewFromInt(1),
		Unit:         "pcs",
		PricePerUnit: decimal.RequireFromString("99999999.99"),
		TotalPrice:   decimal.RequireFromString("99999999.99"),
		Brand:        "Acme",
	}
	assert.NoError(t, in.Validate())

	in.Quantity = decimal.NewFromInt(2)
	in.TotalPrice = decimal.RequireFromString("199999999.98")
	err := in.Validate()
	require.ErrorIs(t, err, errs.ErrValidation)
	var verr *validation.RequestValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "totalPrice", verr.Fields()[0].Field)
}

func TestList_ScopeIsolation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Record(ctx, purchase("Bulb", 5, 1), f.user1.ID)
	require.NoError(t, err)
	_, err = f.svc.Record(ctx, purchase("Bulb", 3, 1), f.user1.ID)
	require.NoError(t, err)
	_, err = f.svc.Record(ctx, purchase("Bulb", 7, 1), f.user2.ID)
	require.NoError(t, err)

	own, err := f.svc.List(ctx, scope.Branch(f.branch1.ID))
	require.NoError(t, err)
	require.Len(t, own, 2)
	for _, p := range own {
		require.NotNil(t, p.BranchID)
		assert.Equal(t, f.branch1.ID, *p.BranchID)
	}

	other, err := f.svc.List(ctx, scope.Branch(f.branch2.ID))
	require.NoError(t, err)
	assert.Len(t, other, 1)

	all, err := f.svc.List(ctx, scope.All())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := f.svc.List(ctx, scope.None())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestList_IsDeterministic(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		_, err := f.svc.Record(ctx, purchase("Bulb", i, 1), f.user1.ID)
		require.NoError(t, err)
	}

	first, err := f.svc.List(ctx, scope.All())
	require.NoError(t, err)
	second, err := f.svc.List(ctx, scope.All())
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestGet_OutOfScopeIsNotFound(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Record(ctx, purchase("Bulb", 1, 1), f.user2.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, p.ID, scope.Branch(f.branch1.ID))
	assert.ErrorIs(t, err, errs.ErrNotFound)

	got, err := f.svc.Get(ctx, p.ID, scope.All())
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestSoftRemove_Twice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	keep, err := f.svc.Record(ctx, purchase("Bulb", 5, 1), f.user1.ID)
	require.NoError(t, err)
	drop, err := f.svc.Record(ctx, purchase("Bulb", 3, 1), f.user1.ID)
	require.NoError(t, err)

	removed, err := f.svc.SoftRemove(ctx, drop.ID, scope.All(), f.admin.ID)
	require.NoError(t, err)
	assert.True(t, removed.IsRemoved)

	_, err = f.svc.SoftRemove(ctx, drop.ID, scope.All(), f.admin.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.SoftRemove(ctx, 4242, scope.All(), f.admin.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	list, err := f.svc.List(ctx, scope.All())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)

	// the row still exists
	var row models.Purchase
	require.NoError(t, f.db.First(&row, drop.ID).Error)
	assert.True(t, row.IsRemoved)

	// ids are not reused
	next, err := f.svc.Record(ctx, purchase("Bulb", 1, 1), f.user1.ID)
	require.NoError(t, err)
	assert.Greater(t, next.ID, drop.ID)
}

func TestSoftRemove_OutOfScope(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Record(ctx, purchase("Bulb", 1, 1), f.user2.ID)
	require.NoError(t, err)

	_, err = f.svc.SoftRemove(ctx, p.ID, scope.Branch(f.branch1.ID), f.user1.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.Get(ctx, p.ID, scope.All())
	assert.NoError(t, err, "purchase is untouched")
}

func TestUpdate_OverwritesFieldsKeepsOwner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Record(ctx, purchase("Bulb", 5, 2), f.user1.ID)
	require.NoError(t, err)

	in := purchase("LED Bulb", 6, 3)
	in.Unit = "boxes"
	in.Brand = "Osram"
	in.LowStockThreshold = 4

	updated, err := f.svc.Update(ctx, p.ID, in, scope.Branch(f.branch1.ID), f.user1.ID)
	require.NoError(t, err)

	assert.Equal(t, "LED Bulb", updated.ProductName)
	assert.True(t, updated.Quantity.Equal(decimal.NewFromInt(6)))
	assert.True(t, updated.TotalPrice.Equal(decimal.NewFromInt(18)))
	assert.Equal(t, "boxes", updated.Unit)
	assert.Equal(t, "Osram", updated.Brand)
	assert.Equal(t, 4, updated.LowStockThreshold)
	assert.Equal(t, f.user1.ID, updated.UserID)
	require.NotNil(t, updated.BranchID)
	assert.Equal(t, f.branch1.ID, *updated.BranchID)
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, f.user1.ID, *updated.UpdatedBy)

	_, err = f.svc.Update(ctx, p.ID, in, scope.Branch(f.branch2.ID), f.user2.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestMutations_AreAudited(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Record(ctx, purchase("Bulb", 5, 2), f.user1.ID)
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, p.ID, purchase("Bulb", 4, 2), scope.All(), f.admin.ID)
	require.NoError(t, err)
	_, err = f.svc.SoftRemove(ctx, p.ID, scope.All(), f.admin.ID)
	require.NoError(t, err)

	var logs []models.AuditLog
	require.NoError(t, f.db.Where("entity_type = ? AND entity_id = ?", audit.EntityPurchase, p.ID).
		Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 3)
	assert.Equal(t, models.AuditActionCreate, logs[0].Action)
	assert.Equal(t, models.AuditActionUpdate, logs[1].Action)
	assert.Equal(t, models.AuditActionDelete, logs[2].Action)
	assert.Equal(t, "one", logs[0].UserName)
	assert.Equal(t, "admin", logs[2].UserName)
}
