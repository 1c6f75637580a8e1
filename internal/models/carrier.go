package models

import "gorm.io/gorm"

// Carrier represents a trucking company that users with the carrier or
// driver role belong to.
type Carrier struct {
	gorm.Model
	Name      string `gorm:"column:name;not null" json:"name"`
	MCNumber  string `gorm:"column:mc_number;uniqueIndex;not null" json:"mcNumber"`
	DOTNumber string `gorm:"column:dot_number" json:"dotNumber"`
	Phone     string `gorm:"column:phone" json:"phone"`
}

// TableName specifies the table name
func (Carrier) TableName() string {
	return "carriers"
}
