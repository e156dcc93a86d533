package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"buchhaltung-backend/database"
	"buchhaltung-backend/models"
)

// Shared helpers for the engine tests: an in-memory database carrying the
// tenant schema, and a seeded chart of accounts.

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.TenantModels...))
	return db
}

type fixture struct {
	db      *gorm.DB
	acc     Accounts
	bank    *models.CashBook
	vatCode *models.VatCode
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	control := &models.Nominal{Code: "2100", Name: "Purchase Ledger Control"}
	vat := &models.Nominal{Code: "2200", Name: "Vat Control"}
	bankNom := &models.Nominal{Code: "1200", Name: "Bank Account"}
	expense := &models.Nominal{Code: "5000", Name: "Materials"}
	for _, n := range []*models.Nominal{control, vat, bankNom, expense} {
		require.NoError(t, db.Create(n).Error)
	}
	bank := &models.CashBook{Name: "Current", NominalID: bankNom.ID}
	require.NoError(t, db.Create(bank).Error)
	vc := &models.VatCode{Code: "1", Name: "Standard Rate", Rate: dec("20"), Registered: true}
	require.NoError(t, db.Create(vc).Error)

	return &fixture{
		db:      db,
		acc:     Accounts{Control: control, Vat: vat, Bank: bankNom},
		bank:    bank,
		vatCode: vc,
	}
}

// expenseNominal returns the seeded analysis nominal.
func (f *fixture) expenseNominal(t *testing.T) *models.Nominal {
	t.Helper()
	var n models.Nominal
	require.NoError(t, f.db.Where("code = ?", "5000").First(&n).Error)
	return &n
}

// mkHeader persists a header with due == total and no allocations yet.
func mkHeader(t *testing.T, db *gorm.DB, module, typ, total string) *models.Header {
	t.Helper()
	tot := dec(total)
	h := &models.Header{
		Module: module,
		Type:   typ,
		Ref:    "ref-" + typ,
		Goods:  tot,
		Total:  tot,
		Paid:   decimal.Zero,
		Due:    tot,
		Date:   time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC),
		Period: "202001",
		Status: models.StatusCleared,
	}
	require.NoError(t, db.Create(h).Error)
	return h
}

func reload(t *testing.T, db *gorm.DB, h *models.Header) *models.Header {
	t.Helper()
	var out models.Header
	require.NoError(t, db.First(&out, h.ID).Error)
	return &out
}
