package models

import (
	"time"

	"gorm.io/gorm"
)

// AddressType discriminates the per-user address rows.
type AddressType string

const (
	AddressTypeShipping AddressType = "shipping"
	AddressTypeBilling  AddressType = "billing"
)

func (t AddressType) IsValid() bool {
	return t == AddressTypeShipping || t == AddressTypeBilling
}

// UserProfile is the minimal profile record synced best-effort at checkout.
type UserProfile struct {
	UserID    string         `gorm:"primaryKey;type:varchar(36)" json:"user_id"`
	FirstName string         `gorm:"type:varchar(100)" json:"first_name"`
	LastName  string         `gorm:"type:varchar(100)" json:"last_name"`
	Phone     string         `gorm:"type:varchar(20)" json:"phone"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

type UserAddress struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string         `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Type      AddressType    `gorm:"type:varchar(10);not null" json:"type"`
	FirstName string         `gorm:"type:varchar(100)" json:"first_name"`
	LastName  string         `gorm:"type:varchar(100)" json:"last_name"`
	Phone     string         `gorm:"type:varchar(20)" json:"phone"`
	Address   string         `gorm:"type:varchar(255)" json:"address"`
	City      string         `gorm:"type:varchar(100)" json:"city"`
	State     string         `gorm:"type:varchar(100)" json:"state"`
	ZipCode   string         `gorm:"type:varchar(20)" json:"zip_code"`
	Country   string         `gorm:"type:varchar(100)" json:"country"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (UserAddress) TableName() string {
	return "user_addresses"
}
