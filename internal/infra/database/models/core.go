package models

import (
	"time"
)

type Admin struct {
	ID           string    `json:"id" gorm:"primaryKey;type:text"`
	Email        string    `json:"email" gorm:"type:text;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"type:text;not null"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ContactMessage struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Email     string    `json:"email" gorm:"type:text;not null"`
	Subject   string    `json:"subject" gorm:"type:text"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	Read      bool      `json:"read" gorm:"not null;default:false;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

type Upload struct {
	Key         string    `json:"key" gorm:"primaryKey;type:text"`
	ContentType string    `json:"contentType" gorm:"type:text"`
	Size        int64     `json:"size"`
	URL         string    `json:"url" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt"`
}
