package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Nominal is a general-ledger account. The chart-of-accounts tree is managed
// elsewhere; the ledger core only needs the row to exist as a FK target.
type Nominal struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Code string `json:"code" gorm:"size:10;uniqueIndex;not null"`
	Name string `json:"name" gorm:"size:50;not null"`
}

// NominalTransaction field codes.
const (
	FieldGoods = "g"
	FieldVat   = "v"
	FieldTotal = "t"
)

// NominalTransaction is one general-ledger entry. The (module, header, line,
// field) tuple is the natural key: a line posts at most one goods, one vat
// and one total entry.
type NominalTransaction struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	Module string `json:"module" gorm:"size:2;uniqueIndex:idx_nominal_trans_batch,priority:1;not null"`
	Header uint   `json:"header" gorm:"uniqueIndex:idx_nominal_trans_batch,priority:2;not null"`
	Line   int    `json:"line" gorm:"uniqueIndex:idx_nominal_trans_batch,priority:3;not null"`
	Field  string `json:"field" gorm:"size:2;uniqueIndex:idx_nominal_trans_batch,priority:4;not null"`

	NominalID uint            `json:"nominal_id" gorm:"index;not null"`
	Nominal   Nominal         `json:"-" gorm:"foreignKey:NominalID"`
	Value     decimal.Decimal `json:"value" gorm:"type:numeric(10,2)"`

	Ref    string    `json:"ref" gorm:"size:20"`
	Period string    `json:"period" gorm:"size:6;index"`
	Date   time.Time `json:"date"`
	Type   string    `json:"type" gorm:"size:3"`
}
