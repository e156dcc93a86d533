package models

import "github.com/shopspring/decimal"

// Matching records how much of one header's balance has been settled against
// another. matched_by is the header through whose create/edit action the
// allocation was made; matched_to the counterparty. Value is the amount of
// matched_to's balance being allocated: matched_to.paid moves by +value,
// matched_by.paid by -value.
type Matching struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	MatchedByID uint   `json:"matched_by" gorm:"index;not null"`
	MatchedBy   Header `json:"-" gorm:"foreignKey:MatchedByID;constraint:OnDelete:CASCADE"`
	MatchedToID uint   `json:"matched_to" gorm:"index;not null"`
	MatchedTo   Header `json:"-" gorm:"foreignKey:MatchedToID;constraint:OnDelete:CASCADE"`

	// Denormalized so matching enquiries don't need the header rows.
	MatchedByType string `json:"matched_by_type" gorm:"size:3"`
	MatchedToType string `json:"matched_to_type" gorm:"size:3"`

	Value  decimal.Decimal `json:"value" gorm:"type:numeric(10,2)"`
	Period string          `json:"period" gorm:"size:6"`
}
