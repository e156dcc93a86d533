package models

import "time"

// Contact is a customer and/or supplier. Sales headers reference customer
// contacts, purchase headers supplier contacts; one contact can be both.
type Contact struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Code     string `json:"code" gorm:"size:10;uniqueIndex;not null"`
	Name     string `json:"name" gorm:"size:100;not null"`
	Email    string `json:"email" gorm:"size:100"`
	Customer bool   `json:"customer"`
	Supplier bool   `json:"supplier"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
