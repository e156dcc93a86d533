package models

import "github.com/shopspring/decimal"

// Line is one analysis row under a header. A line exists before the nominal
// transactions it generates, so the three back-references start nil and are
// filled in by the posting engine after the bulk insert.
type Line struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	HeaderID uint   `json:"-" gorm:"index;not null"`
	LineNo   int    `json:"line_no" gorm:"not null"`
	Type     string `json:"type" gorm:"size:3;not null"`

	Description string          `json:"description" gorm:"size:100"`
	Goods       decimal.Decimal `json:"goods" gorm:"type:numeric(10,2)"`
	Vat         decimal.Decimal `json:"vat" gorm:"type:numeric(10,2)"`

	NominalID *uint    `json:"nominal_id"`
	Nominal   *Nominal `json:"nominal,omitempty" gorm:"foreignKey:NominalID"`
	VatCodeID *uint    `json:"vat_code_id"`
	VatCode   *VatCode `json:"vat_code,omitempty" gorm:"foreignKey:VatCodeID;constraint:OnDelete:SET NULL"`

	GoodsNominalTransactionID *uint `json:"-"`
	VatNominalTransactionID   *uint `json:"-"`
	TotalNominalTransactionID *uint `json:"-"`
	VatTransactionID          *uint `json:"-"`
}
