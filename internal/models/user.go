package models

import (
	"gorm.io/gorm"
	"golang.org/x/crypto/bcrypt"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleShipper UserRole = "shipper"
	RoleCarrier UserRole = "carrier"
	RoleDriver  UserRole = "driver"
)

type User struct {
	gorm.Model
	Username     string   `gorm:"column:username;uniqueIndex;not null" json:"username"`
	Email        string   `gorm:"column:email;uniqueIndex;not null" json:"email"`
	PasswordHash string   `gorm:"column:password_hash;not null" json:"-"`
	Phone        string   `gorm:"column:phone" json:"phone"`
	Role         UserRole `gorm:"column:role;not null" json:"role"`
	CarrierID    *uint    `gorm:"column:carrier_id" json:"carrierId,omitempty"`
	Carrier      *Carrier `gorm:"foreignKey:CarrierID" json:"carrier,omitempty"`
	FCMToken     string   `gorm:"column:fcm_token" json:"-"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
