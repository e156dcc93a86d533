package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buchhaltung-backend/models"
)

func assertMoney(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "%s: want %s got %s", msg, want, got)
}

func TestMatchPaymentAgainstTwoInvoices(t *testing.T) {
	f := newFixture(t)

	inv1 := mkHeader(t, f.db, ModulePurchases, "pi", "1200")
	inv2 := mkHeader(t, f.db, ModulePurchases, "pi", "1200")
	payment := mkHeader(t, f.db, ModulePurchases, "pp", "-1000")

	err := ApplyMatching(f.db, Purchases, payment, []Instruction{
		{HeaderID: inv1.ID, Value: dec("500")},
		{HeaderID: inv2.ID, Value: dec("500")},
	}, "202001")
	require.NoError(t, err)

	payment = reload(t, f.db, payment)
	assertMoney(t, "-1000", payment.Paid, "payment paid")
	assertMoney(t, "0", payment.Due, "payment due")

	for _, inv := range []*models.Header{inv1, inv2} {
		got := reload(t, f.db, inv)
		assertMoney(t, "500", got.Paid, "invoice paid")
		assertMoney(t, "700", got.Due, "invoice due")
	}

	var rows []models.Matching
	require.NoError(t, f.db.Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, payment.ID, row.MatchedByID)
		assertMoney(t, "500", row.Value, "matching value")
	}
}

func TestEditPaymentGrowsMatches(t *testing.T) {
	f := newFixture(t)

	inv1 := mkHeader(t, f.db, ModulePurchases, "pi", "1200")
	inv2 := mkHeader(t, f.db, ModulePurchases, "pi", "1200")
	payment := mkHeader(t, f.db, ModulePurchases, "pp", "-1000")

	require.NoError(t, ApplyMatching(f.db, Purchases, payment, []Instruction{
		{HeaderID: inv1.ID, Value: dec("500")},
		{HeaderID: inv2.ID, Value: dec("500")},
	}, "202001"))

	// Edit: total goes from 1000 to 2000, each match from 500 to 1000.
	payment = reload(t, f.db, payment)
	payment.Total = dec("-2000")
	payment.Goods = dec("-2000")
	payment.Due = payment.Total.Sub(payment.Paid)
	require.NoError(t, f.db.Save(payment).Error)

	var rows []models.Matching
	require.NoError(t, f.db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)

	err := ApplyMatching(f.db, Purchases, payment, []Instruction{
		{MatchingID: rows[0].ID, HeaderID: rows[0].MatchedToID, Value: dec("1000")},
		{MatchingID: rows[1].ID, HeaderID: rows[1].MatchedToID, Value: dec("1000")},
	}, "202001")
	require.NoError(t, err)

	payment = reload(t, f.db, payment)
	assertMoney(t, "-2000", payment.Paid, "payment paid")
	assertMoney(t, "0", payment.Due, "payment due")
	for _, inv := range []*models.Header{inv1, inv2} {
		got := reload(t, f.db, inv)
		assertMoney(t, "1000", got.Paid, "invoice paid")
		assertMoney(t, "200", got.Due, "invoice due")
	}
}

func TestMixedUpdateAndNewInstructions(t *testing.T) {
	f := newFixture(t)

	inv1 := mkHeader(t, f.db, ModulePurchases, "pi", "1200")
	inv2 := mkHeader(t, f.db, ModulePurchases, "pi", "1200")
	payment := mkHeader(t, f.db, ModulePurchases, "pp", "-1000")

	require.NoError(t, ApplyMatching(f.db, Purchases, payment, []Instruction{
		{HeaderID: inv1.ID, Value: dec("500")},
	}, "202001"))

	var row models.Matching
	require.NoError(t, f.db.First(&row).Error)

	// One edit grows the existing match and opens a new one.
	payment = reload(t, f.db, payment)
	require.NoError(t, ApplyMatching(f.db, Purchases, payment, []Instruction{
		{MatchingID: row.ID, HeaderID: inv1.ID, Value: dec("600")},
		{HeaderID: inv2.ID, Value: dec("400")},
	}, "202001"))

	payment = reload(t, f.db, payment)
	assertMoney(t, "-1000", payment.Paid, "payment paid")
	assertMoney(t, "0", payment.Due, "payment due")

	inv1Got := reload(t, f.db, inv1)
	assertMoney(t, "600", inv1Got.Paid, "first invoice paid")
	assertMoney(t, "600", inv1Got.Due, "first invoice due")
	inv2Got := reload(t, f.db, inv2)
	assertMoney(t, "400", inv2Got.Paid, "second invoice paid")
	assertMoney(t, "800", inv2Got.Due, "second invoice due")

	var count int64
	require.NoError(t, f.db.Model(&models.Matching{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestMatchingIsIdempotentOnResubmission(t *testing.T) {
	f := newFixture(t)

	inv := mkHeader(t, f.db, ModulePurchases, "pi", "1200")
	payment := mkHeader(t, f.db, ModulePurchases, "pp", "-500")

	require.NoError(t, ApplyMatching(f.db, Purchases, payment, []Instruction{
		{HeaderID: inv.ID, Value: dec("500")},
	}, "202001"))

	var row models.Matching
	require.NoError(t, f.db.First(&row).Error)

	// Re-submitting the identical final instruction set must not drift any
	// balance: the update is delta-based.
	for i := 0; i < 3; i++ {
		payment = reload(t, f.db, payment)
		require.NoError(t, ApplyMatching(f.db, Purchases, payment, []Instruction{
			{MatchingID: row.ID, HeaderID: inv.ID, Value: dec("500")},
		}, "202001"))
	}

	payment = reload(t, f.db, payment)
	invGot := reload(t, f.db, inv)
	assertMoney(t, "-500", payment.Paid, "payment paid")
	assertMoney(t, "0", payment.Due, "payment due")
	assertMoney(t, "500", invGot.Paid, "invoice paid")
	assertMoney(t, "700", invGot.Due, "invoice due")

	var count int64
	require.NoError(t, f.db.Model(&models.Matching{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestMatchValueExceedingDueRejected(t *testing.T) {
	f := newFixture(t)

	inv := mkHeader(t, f.db, ModulePurchases, "pi", "1200")
	payment := mkHeader(t, f.db, ModulePurchases, "pp", "-2000")

	err := ApplyMatching(f.db, Purchases, payment, []Instruction{
		{HeaderID: inv.ID, Value: dec("1300")},
	}, "202001")
	require.Error(t, err)

	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	require.NotEmpty(t, ve["matching.0.value"])
	assert.Contains(t, ve["matching.0.value"][0], "between 0 and 1200")

	// Nothing persisted: both headers untouched, no matching rows.
	invGot := reload(t, f.db, inv)
	payGot := reload(t, f.db, payment)
	assertMoney(t, "1200", invGot.Due, "invoice due")
	assertMoney(t, "0", invGot.Paid, "invoice paid")
	assertMoney(t, "-2000", payGot.Due, "payment due")
	var count int64
	require.NoError(t, f.db.Model(&models.Matching{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRepeatedCounterpartyInOneBatchRejected(t *testing.T) {
	f := newFixture(t)

	inv := mkHeader(t, f.db, ModulePurchases, "pi", "1200")
	payment := mkHeader(t, f.db, ModulePurchases, "pp", "-2000")

	// Two new matches against the same header would create two rows for one
	// pair; the second instruction is rejected.
	err := ApplyMatching(f.db, Purchases, payment, []Instruction{
		{HeaderID: inv.ID, Value: dec("700")},
		{HeaderID: inv.ID, Value: dec("700")},
	}, "202001")
	require.Error(t, err)
	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	require.NotEmpty(t, ve["matching.1.header_id"])

	var count int64
	require.NoError(t, f.db.Model(&models.Matching{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDuplicateMatchingRecordRejected(t *testing.T) {
	f := newFixture(t)

	inv := mkHeader(t, f.db, ModulePurchases, "pi", "1200")
	payment := mkHeader(t, f.db, ModulePurchases, "pp", "-600")
	require.NoError(t, ApplyMatching(f.db, Purchases, payment, []Instruction{
		{HeaderID: inv.ID, Value: dec("600")},
	}, "202001"))

	var row models.Matching
	require.NoError(t, f.db.First(&row).Error)

	// The same row twice in one batch would apply its delta twice while the
	// row itself keeps only the final value, drifting paid away from the
	// stored allocations.
	payment = reload(t, f.db, payment)
	err := ApplyMatching(f.db, Purchases, payment, []Instruction{
		{MatchingID: row.ID, HeaderID: inv.ID, Value: dec("500")},
		{MatchingID: row.ID, HeaderID: inv.ID, Value: dec("500")},
	}, "202001")
	require.Error(t, err)
	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	require.NotEmpty(t, ve["matching.1.matching_id"])

	require.NoError(t, f.db.First(&row, row.ID).Error)
	assertMoney(t, "600", row.Value, "row keeps its value")
	invGot := reload(t, f.db, inv)
	assertMoney(t, "600", invGot.Paid, "invoice paid unchanged")
	assertMoney(t, "600", invGot.Due, "invoice due unchanged")
	payGot := reload(t, f.db, payment)
	assertMoney(t, "-600", payGot.Paid, "payment paid unchanged")
	assertMoney(t, "0", payGot.Due, "payment due unchanged")
}

func TestSecondMatchForSamePairRejected(t *testing.T) {
	f := newFixture(t)

	inv := mkHeader(t, f.db, ModulePurchases, "pi", "1200")
	payment := mkHeader(t, f.db, ModulePurchases, "pp", "-1000")
	require.NoError(t, ApplyMatching(f.db, Purchases, payment, []Instruction{
		{HeaderID: inv.ID, Value: dec("400")},
	}, "202001"))

	// A pair of headers holds one matching row; further allocation goes
	// through an update of that row, not a second row.
	payment = reload(t, f.db, payment)
	err := ApplyMatching(f.db, Purchases, payment, []Instruction{
		{HeaderID: inv.ID, Value: dec("200")},
	}, "202001")
	require.Error(t, err)
	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	require.NotEmpty(t, ve["matching.0.header_id"])
	assert.Contains(t, ve["matching.0.header_id"][0], "already matched")

	var count int64
	require.NoError(t, f.db.Model(&models.Matching{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	invGot := reload(t, f.db, inv)
	assertMoney(t, "400", invGot.Paid, "invoice paid unchanged")
}

func TestZeroTotalHeaderMustNetToZero(t *testing.T) {
	f := newFixture(t)

	inv := mkHeader(t, f.db, ModulePurchases, "pi", "100")
	cn := mkHeader(t, f.db, ModulePurchases, "pc", "-80")
	zero := mkHeader(t, f.db, ModulePurchases, "pp", "0")

	err := ApplyMatching(f.db, Purchases, zero, []Instruction{
		{HeaderID: inv.ID, Value: dec("100")},
		{HeaderID: cn.ID, Value: dec("-80")},
	}, "202001")
	require.Error(t, err)
	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	require.NotEmpty(t, ve[NonFieldErrors])
	assert.Contains(t, ve[NonFieldErrors][0], "between 0 and 0")

	var count int64
	require.NoError(t, f.db.Model(&models.Matching{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestZeroTotalHeaderNettingToZeroSucceeds(t *testing.T) {
	f := newFixture(t)

	inv := mkHeader(t, f.db, ModulePurchases, "pi", "100")
	cn := mkHeader(t, f.db, ModulePurchases, "pc", "-100")
	zero := mkHeader(t, f.db, ModulePurchases, "pp", "0")

	require.NoError(t, ApplyMatching(f.db, Purchases, zero, []Instruction{
		{HeaderID: inv.ID, Value: dec("100")},
		{HeaderID: cn.ID, Value: dec("-100")},
	}, "202001"))

	zeroGot := reload(t, f.db, zero)
	assertMoney(t, "0", zeroGot.Due, "zero header due")
	assertMoney(t, "0", zeroGot.Paid, "zero header paid")

	invGot := reload(t, f.db, inv)
	assertMoney(t, "100", invGot.Paid, "invoice paid")
	assertMoney(t, "0", invGot.Due, "invoice due")
	cnGot := reload(t, f.db, cn)
	assertMoney(t, "-100", cnGot.Paid, "credit note paid")
	assertMoney(t, "0", cnGot.Due, "credit note due")
}

func TestZeroValueMatchIsANoOp(t *testing.T) {
	f := newFixture(t)

	inv := mkHeader(t, f.db, ModulePurchases, "pi", "1200")
	payment := mkHeader(t, f.db, ModulePurchases, "pp", "0")

	require.NoError(t, ApplyMatching(f.db, Purchases, payment, []Instruction{
		{HeaderID: inv.ID, Value: decimal.Zero},
	}, "202001"))

	var row models.Matching
	require.NoError(t, f.db.First(&row).Error)
	assertMoney(t, "0", row.Value, "matching value")

	invGot := reload(t, f.db, inv)
	assertMoney(t, "1200", invGot.Due, "invoice due")
	assertMoney(t, "0", invGot.Paid, "invoice paid")
}

func TestFullMatchZeroesCounterpartyDue(t *testing.T) {
	f := newFixture(t)

	inv := mkHeader(t, f.db, ModulePurchases, "pi", "1200")
	payment := mkHeader(t, f.db, ModulePurchases, "pp", "-1200")

	require.NoError(t, ApplyMatching(f.db, Purchases, payment, []Instruction{
		{HeaderID: inv.ID, Value: dec("1200")},
	}, "202001"))

	invGot := reload(t, f.db, inv)
	assertMoney(t, "0", invGot.Due, "invoice due")
	assert.True(t, invGot.Paid.Equal(invGot.Total), "paid == total on a fully matched header")
}

func TestSubjectOnMatchedToSideAdjustsRow(t *testing.T) {
	f := newFixture(t)

	// The payment initiated the match; later the invoice is edited and
	// shrinks both its total and the allocation held against it.
	inv := mkHeader(t, f.db, ModulePurchases, "pi", "1200")
	payment := mkHeader(t, f.db, ModulePurchases, "pp", "-600")
	require.NoError(t, ApplyMatching(f.db, Purchases, payment, []Instruction{
		{HeaderID: inv.ID, Value: dec("600")},
	}, "202001"))

	var row models.Matching
	require.NoError(t, f.db.First(&row).Error)
	require.Equal(t, payment.ID, row.MatchedByID)
	require.Equal(t, inv.ID, row.MatchedToID)

	inv = reload(t, f.db, inv)
	inv.Total = dec("1080")
	inv.Goods = dec("1080")
	inv.Due = inv.Total.Sub(inv.Paid)
	require.NoError(t, f.db.Save(inv).Error)

	err := ApplyMatching(f.db, Purchases, inv, []Instruction{
		{MatchingID: row.ID, HeaderID: payment.ID, Value: dec("480")},
	}, "202001")
	require.NoError(t, err)

	require.NoError(t, f.db.First(&row, row.ID).Error)
	assertMoney(t, "480", row.Value, "row keeps its own orientation")

	invGot := reload(t, f.db, inv)
	assertMoney(t, "480", invGot.Paid, "invoice paid")
	assertMoney(t, "600", invGot.Due, "invoice due")

	payGot := reload(t, f.db, payment)
	assertMoney(t, "-480", payGot.Paid, "payment paid")
	assertMoney(t, "-120", payGot.Due, "payment due")
}

func TestMatchingRejectsForeignAndVoidHeaders(t *testing.T) {
	f := newFixture(t)

	salesInv := mkHeader(t, f.db, ModuleSales, "si", "100")
	void := mkHeader(t, f.db, ModulePurchases, "pi", "100")
	require.NoError(t, f.db.Model(void).Update("status", models.StatusVoid).Error)
	payment := mkHeader(t, f.db, ModulePurchases, "pp", "-100")

	err := ApplyMatching(f.db, Purchases, payment, []Instruction{
		{HeaderID: salesInv.ID, Value: dec("50")},
		{HeaderID: void.ID, Value: dec("50")},
		{HeaderID: payment.ID, Value: dec("50")},
	}, "202001")
	require.Error(t, err)
	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve["matching.0.header_id"], "cross-module header must not resolve")
	assert.NotEmpty(t, ve["matching.1.header_id"], "void header cannot be matched")
	assert.NotEmpty(t, ve["matching.2.header_id"], "self-match rejected")
}

func TestVoidMatchingRestoresCounterparties(t *testing.T) {
	f := newFixture(t)

	inv := mkHeader(t, f.db, ModulePurchases, "pi", "1200")
	payment := mkHeader(t, f.db, ModulePurchases, "pp", "-500")
	require.NoError(t, ApplyMatching(f.db, Purchases, payment, []Instruction{
		{HeaderID: inv.ID, Value: dec("500")},
	}, "202001"))

	payment = reload(t, f.db, payment)
	require.NoError(t, VoidMatching(f.db, payment))

	invGot := reload(t, f.db, inv)
	assertMoney(t, "1200", invGot.Due, "invoice due restored")
	assertMoney(t, "0", invGot.Paid, "invoice paid restored")
	assertMoney(t, "0", payment.Paid, "void subject paid")
	assertMoney(t, "0", payment.Due, "void subject due")

	var count int64
	require.NoError(t, f.db.Model(&models.Matching{}).Count(&count).Error)
	assert.Zero(t, count)
}
