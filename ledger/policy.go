package ledger

import (
	"github.com/shopspring/decimal"

	"buchhaltung-backend/models"
)

// Module codes, mirrored onto every subsidiary ledger row.
const (
	ModulePurchases = "PL"
	ModuleSales     = "SL"
	ModuleCashBook  = "CB"
	ModuleNominal   = "NL"
)

// PostingStrategy selects how a header type reaches the nominal ledger.
type PostingStrategy int

const (
	// NoPost skips the nominal ledger entirely. Brought-forward types
	// represent balances already present in the ledger.
	NoPost PostingStrategy = iota
	// LinePost emits the goods/vat/total triple per analysis line.
	LinePost
	// CashPost is the simplified two-entry bank/control post for payment
	// types without lines.
	CashPost
	// JournalPost emits goods/vat entries per line with no control leg;
	// the journal's own lines must net to zero.
	JournalPost
)

// LineRequirement states whether a header type carries analysis lines.
type LineRequirement int

const (
	LinesRequired LineRequirement = iota
	LinesForbidden
)

// Sign is the storage convention for user-entered amounts.
type Sign int

const (
	Debit  Sign = iota // stored as entered
	Credit             // stored negated
)

// KindSpec classifies one header type code.
type KindSpec struct {
	Code    string
	Name    string
	Posting PostingStrategy
	Lines   LineRequirement
	Sign    Sign
	Payment bool   // cash-like type carrying a cash book
	VatType string // overrides the module VatType when set
}

// Policy is the per-module transaction type table. It is static: resolved
// once per header, never re-derived per call site.
type Policy struct {
	Module    string
	VatType   string // models.VatTypeInput / VatTypeOutput, "" = no VAT ledger
	Matchable bool   // whether headers of this module participate in matching
	kinds     map[string]KindSpec
}

func newPolicy(module, vatType string, matchable bool, kinds []KindSpec) *Policy {
	m := make(map[string]KindSpec, len(kinds))
	for _, k := range kinds {
		m[k.Code] = k
	}
	return &Policy{Module: module, VatType: vatType, Matchable: matchable, kinds: m}
}

// Kind resolves a type code. The boolean is false for codes the module does
// not define.
func (p *Policy) Kind(code string) (KindSpec, bool) {
	k, ok := p.kinds[code]
	return k, ok
}

// SignedTotal translates a user-entered (positive) amount into the canonical
// signed storage form: debit types as entered, credit types negated. This is
// the only sign-flip boundary in the system.
func (p *Policy) SignedTotal(code string, amount decimal.Decimal) decimal.Decimal {
	if k, ok := p.kinds[code]; ok && k.Sign == Credit {
		return amount.Neg()
	}
	return amount
}

var (
	// Purchases holds supplier-side documents; VAT is input VAT.
	Purchases = newPolicy(ModulePurchases, models.VatTypeInput, true, []KindSpec{
		{Code: "pbi", Name: "Brought Forward Invoice", Posting: NoPost, Lines: LinesRequired, Sign: Debit},
		{Code: "pbc", Name: "Brought Forward Credit Note", Posting: NoPost, Lines: LinesRequired, Sign: Credit},
		{Code: "pbp", Name: "Brought Forward Payment", Posting: NoPost, Lines: LinesForbidden, Sign: Credit, Payment: true},
		{Code: "pbr", Name: "Brought Forward Refund", Posting: NoPost, Lines: LinesForbidden, Sign: Debit, Payment: true},
		{Code: "pi", Name: "Invoice", Posting: LinePost, Lines: LinesRequired, Sign: Debit},
		{Code: "pc", Name: "Credit Note", Posting: LinePost, Lines: LinesRequired, Sign: Credit},
		{Code: "pp", Name: "Payment", Posting: CashPost, Lines: LinesForbidden, Sign: Credit, Payment: true},
		{Code: "pr", Name: "Refund", Posting: CashPost, Lines: LinesForbidden, Sign: Debit, Payment: true},
	})

	// Sales mirrors Purchases on the customer side; VAT is output VAT.
	Sales = newPolicy(ModuleSales, models.VatTypeOutput, true, []KindSpec{
		{Code: "sbi", Name: "Brought Forward Invoice", Posting: NoPost, Lines: LinesRequired, Sign: Debit},
		{Code: "sbc", Name: "Brought Forward Credit Note", Posting: NoPost, Lines: LinesRequired, Sign: Credit},
		{Code: "sbp", Name: "Brought Forward Receipt", Posting: NoPost, Lines: LinesForbidden, Sign: Credit, Payment: true},
		{Code: "sbr", Name: "Brought Forward Refund", Posting: NoPost, Lines: LinesForbidden, Sign: Debit, Payment: true},
		{Code: "si", Name: "Invoice", Posting: LinePost, Lines: LinesRequired, Sign: Debit},
		{Code: "sc", Name: "Credit Note", Posting: LinePost, Lines: LinesRequired, Sign: Credit},
		{Code: "sp", Name: "Receipt", Posting: CashPost, Lines: LinesForbidden, Sign: Credit, Payment: true},
		{Code: "sr", Name: "Refund", Posting: CashPost, Lines: LinesForbidden, Sign: Debit, Payment: true},
	})

	// CashBook analyses bank movements across nominals; no matching. VAT
	// classification depends on direction: payments are input, receipts
	// output.
	CashBook = newPolicy(ModuleCashBook, "", false, []KindSpec{
		{Code: "cp", Name: "Payment", Posting: LinePost, Lines: LinesRequired, Sign: Credit, Payment: true, VatType: models.VatTypeInput},
		{Code: "cr", Name: "Receipt", Posting: LinePost, Lines: LinesRequired, Sign: Debit, Payment: true, VatType: models.VatTypeOutput},
	})

	// Nominal carries journals only.
	Nominal = newPolicy(ModuleNominal, "", false, []KindSpec{
		{Code: "nj", Name: "Journal", Posting: JournalPost, Lines: LinesRequired, Sign: Debit},
	})
)

var policies = map[string]*Policy{
	ModulePurchases: Purchases,
	ModuleSales:     Sales,
	ModuleCashBook:  CashBook,
	ModuleNominal:   Nominal,
}

// VatTypeFor resolves the VAT classification for a header type: the kind's
// own override when present, else the module default. Empty means the type
// never reaches the VAT ledger.
func (p *Policy) VatTypeFor(code string) string {
	if k, ok := p.kinds[code]; ok && k.VatType != "" {
		return k.VatType
	}
	return p.VatType
}

// ForModule resolves the policy table for a module code.
func ForModule(module string) (*Policy, bool) {
	p, ok := policies[module]
	return p, ok
}
