package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Header statuses.
const (
	StatusCleared = "c"
	StatusVoid    = "v"
)

// Header is one transaction document: invoice, credit note, payment, refund,
// brought-forward entry or journal. Credit-type headers are stored with
// negative amounts regardless of what the user typed; the controllers flip
// the sign at the boundary (ledger.SignedTotal).
type Header struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	Module string `json:"module" gorm:"size:2;not null;index:idx_headers_module_type,priority:1"`
	Type   string `json:"type" gorm:"size:3;not null;index:idx_headers_module_type,priority:2"`
	Ref    string `json:"ref" gorm:"size:20;not null;index"`

	ContactID  *uint    `json:"contact_id" gorm:"index"`
	Contact    *Contact `json:"contact,omitempty" gorm:"foreignKey:ContactID"`
	CashBookID *uint    `json:"cash_book_id"`
	CashBook   *CashBook `json:"cash_book,omitempty" gorm:"foreignKey:CashBookID"`

	Goods    decimal.Decimal `json:"goods" gorm:"type:numeric(10,2)"`
	Discount decimal.Decimal `json:"discount" gorm:"type:numeric(10,2)"`
	Vat      decimal.Decimal `json:"vat" gorm:"type:numeric(10,2)"`
	Total    decimal.Decimal `json:"total" gorm:"type:numeric(10,2)"`

	// Paid is the cumulative total of all matching allocations against this
	// header; Due the unallocated remainder. Due == Total - Paid always.
	Paid decimal.Decimal `json:"paid" gorm:"type:numeric(10,2)"`
	Due  decimal.Decimal `json:"due" gorm:"type:numeric(10,2)"`

	Date    time.Time  `json:"date" gorm:"not null"`
	DueDate *time.Time `json:"due_date"`
	Period  string     `json:"period" gorm:"size:6;not null;index"`
	Status  string     `json:"status" gorm:"size:2;default:c"`

	Lines []Line `json:"lines,omitempty" gorm:"foreignKey:HeaderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsVoid reports whether the header has been voided. Void headers keep their
// rows but no longer participate in matching or posting.
func (h *Header) IsVoid() bool {
	return h.Status == StatusVoid
}
