package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VAT classification of a transaction.
const (
	VatTypeInput  = "i"
	VatTypeOutput = "o"
)

// VatCode is a VAT rate reference (flat percentage rate).
type VatCode struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	Code       string          `json:"code" gorm:"size:10;uniqueIndex;not null"`
	Name       string          `json:"name" gorm:"size:30;not null"`
	Rate       decimal.Decimal `json:"rate" gorm:"type:numeric(10,2)"`
	Registered bool            `json:"registered" gorm:"default:true"`
}

// VatTransaction is one VAT-ledger entry, a denormalized copy of a line's
// figures plus the rate at posting time, kept for VAT-return reporting. It is
// not double-entry; field is always "v".
type VatTransaction struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	Module string `json:"module" gorm:"size:2;uniqueIndex:idx_vat_trans_batch,priority:1;not null"`
	Header uint   `json:"header" gorm:"uniqueIndex:idx_vat_trans_batch,priority:2;not null"`
	Line   int    `json:"line" gorm:"uniqueIndex:idx_vat_trans_batch,priority:3;not null"`
	Field  string `json:"field" gorm:"size:2;uniqueIndex:idx_vat_trans_batch,priority:4;not null"`

	TranType string `json:"tran_type" gorm:"size:3"`
	VatType  string `json:"vat_type" gorm:"size:2"`

	VatCodeID *uint           `json:"vat_code_id"`
	VatCode   *VatCode        `json:"-" gorm:"foreignKey:VatCodeID;constraint:OnDelete:SET NULL"`
	VatRate   decimal.Decimal `json:"vat_rate" gorm:"type:numeric(10,2)"`
	Goods     decimal.Decimal `json:"goods" gorm:"type:numeric(10,2)"`
	Vat       decimal.Decimal `json:"vat" gorm:"type:numeric(10,2)"`

	Ref    string    `json:"ref" gorm:"size:20"`
	Period string    `json:"period" gorm:"size:6;index"`
	Date   time.Time `json:"date"`
}
