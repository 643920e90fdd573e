package domain

import (
	"time"
)

type Company struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	PhoneNumber   *string   `gorm:"type:varchar(20);uniqueIndex" json:"phone_number"`
	DriveFolderID string    `gorm:"type:varchar(100)" json:"drive_folder_id"`
	IsActive      bool      `gorm:"not null" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PhoneNumber string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone_number"`
	CompanyID   *uint     `gorm:"index" json:"company_id"`
	Company     *Company  `gorm:"constraint:OnDelete:SET NULL" json:"company,omitempty"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
