package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buchhaltung-backend/models"
)

func TestForModule(t *testing.T) {
	for _, module := range []string{ModulePurchases, ModuleSales, ModuleCashBook, ModuleNominal} {
		p, ok := ForModule(module)
		require.True(t, ok, module)
		assert.Equal(t, module, p.Module)
	}
	_, ok := ForModule("XX")
	assert.False(t, ok)
}

func TestKindTables(t *testing.T) {
	tests := []struct {
		policy  *Policy
		code    string
		posting PostingStrategy
		lines   LineRequirement
		sign    Sign
		payment bool
	}{
		{Purchases, "pi", LinePost, LinesRequired, Debit, false},
		{Purchases, "pc", LinePost, LinesRequired, Credit, false},
		{Purchases, "pp", CashPost, LinesForbidden, Credit, true},
		{Purchases, "pr", CashPost, LinesForbidden, Debit, true},
		{Purchases, "pbi", NoPost, LinesRequired, Debit, false},
		{Purchases, "pbc", NoPost, LinesRequired, Credit, false},
		{Purchases, "pbp", NoPost, LinesForbidden, Credit, true},
		{Purchases, "pbr", NoPost, LinesForbidden, Debit, true},
		{Sales, "si", LinePost, LinesRequired, Debit, false},
		{Sales, "sp", CashPost, LinesForbidden, Credit, true},
		{CashBook, "cp", LinePost, LinesRequired, Credit, true},
		{CashBook, "cr", LinePost, LinesRequired, Debit, true},
		{Nominal, "nj", JournalPost, LinesRequired, Debit, false},
	}
	for _, tt := range tests {
		k, ok := tt.policy.Kind(tt.code)
		require.True(t, ok, tt.code)
		assert.Equal(t, tt.posting, k.Posting, tt.code)
		assert.Equal(t, tt.lines, k.Lines, tt.code)
		assert.Equal(t, tt.sign, k.Sign, tt.code)
		assert.Equal(t, tt.payment, k.Payment, tt.code)
	}

	_, ok := Purchases.Kind("si")
	assert.False(t, ok, "sales codes must not resolve in the purchase ledger")
}

func TestSignedTotal(t *testing.T) {
	hundred := dec("100.00")

	// Debit types store user amounts as entered.
	assert.True(t, Purchases.SignedTotal("pi", hundred).Equal(hundred))
	assert.True(t, Purchases.SignedTotal("pr", hundred).Equal(hundred))

	// Credit types are negated at the boundary.
	assert.True(t, Purchases.SignedTotal("pc", hundred).Equal(hundred.Neg()))
	assert.True(t, Purchases.SignedTotal("pp", hundred).Equal(hundred.Neg()))
	assert.True(t, Sales.SignedTotal("sp", hundred).Equal(hundred.Neg()))
}

func TestVatTypeFor(t *testing.T) {
	assert.Equal(t, models.VatTypeInput, Purchases.VatTypeFor("pi"))
	assert.Equal(t, models.VatTypeOutput, Sales.VatTypeFor("si"))

	// Cash book kinds override per direction.
	assert.Equal(t, models.VatTypeInput, CashBook.VatTypeFor("cp"))
	assert.Equal(t, models.VatTypeOutput, CashBook.VatTypeFor("cr"))

	// Journals never reach the VAT ledger.
	assert.Equal(t, "", Nominal.VatTypeFor("nj"))
}
