package domain

import (
	"strings"
	"time"
)

// User account. The password hash never leaves the server.
type User struct {
	ID           string    `gorm:"primaryKey;size:32" bson:"_id" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" bson:"email" json:"email"`
	PasswordHash string    `gorm:"not null" bson:"password" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

// TableName Specify table name
func (User) TableName() string {
	return "app_user"
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateCredentials checks the signup/login payload shape
func ValidateCredentials(email, password string) error {
	if email == "" {
		return &FieldError{Field: "email", Message: "is required"}
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return &FieldError{Field: "email", Message: "is not a valid address"}
	}
	if password == "" {
		return &FieldError{Field: "password", Message: "is required"}
	}
	return nil
}
