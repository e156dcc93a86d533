package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashBook is a bank/cash account wrapper around its nominal.
type CashBook struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	Name      string  `json:"name" gorm:"size:50;uniqueIndex;not null"`
	NominalID uint    `json:"nominal_id" gorm:"not null"`
	Nominal   Nominal `json:"-" gorm:"foreignKey:NominalID"`
}

// CashBookTransaction mirrors the bank leg of a cash posting so the cash
// book can be reported without scanning the nominal ledger.
type CashBookTransaction struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	Module string `json:"module" gorm:"size:2;uniqueIndex:idx_cash_book_trans_batch,priority:1;not null"`
	Header uint   `json:"header" gorm:"uniqueIndex:idx_cash_book_trans_batch,priority:2;not null"`
	Line   int    `json:"line" gorm:"uniqueIndex:idx_cash_book_trans_batch,priority:3;not null"`
	Field  string `json:"field" gorm:"size:2;uniqueIndex:idx_cash_book_trans_batch,priority:4;not null"`

	CashBookID uint            `json:"cash_book_id" gorm:"index;not null"`
	CashBook   CashBook        `json:"-" gorm:"foreignKey:CashBookID"`
	Value      decimal.Decimal `json:"value" gorm:"type:numeric(10,2)"`

	Ref    string    `json:"ref" gorm:"size:20"`
	Period string    `json:"period" gorm:"size:6;index"`
	Date   time.Time `json:"date"`
	Type   string    `json:"type" gorm:"size:3"`
}
