package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTP expiries are unix milliseconds; zero means no code is pending on that channel.
type Account struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	Username          string    `gorm:"size:255;not null" json:"username"`
	Email             string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash      string    `gorm:"size:1024;not null" json:"-"`
	IsAccountVerified bool      `gorm:"not null;default:false" json:"isAccountVerified"`
	VerifyOTP         string    `gorm:"size:128;not null;default:''" json:"-"`
	VerifyOTPExpireAt int64     `gorm:"not null;default:0" json:"-"`
	ResetOTP          string    `gorm:"size:128;not null;default:''" json:"-"`
	ResetOTPExpireAt  int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (a *Account) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// PublicAccount is the shape returned by sign-up, sign-in and is-auth.
type PublicAccount struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AccountData is the shape returned by /api/user/data.
type AccountData struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	IsAccountVerified bool   `json:"isAccountVerified"`
}

func (a Account) Public() PublicAccount {
	return PublicAccount{ID: a.ID, Username: a.Username, Email: a.Email}
}

func (a Account) Data() AccountData {
	return AccountData{
		ID:                a.ID,
		Username:          a.Username,
		Email:             a.Email,
		IsAccountVerified: a.IsAccountVerified,
	}
}

// OTPChannel names one of the two independent one-time code slots on an account.
type OTPChannel string

const (
	OTPChannelVerify OTPChannel = "verify"
	OTPChannelReset  OTPChannel = "reset"
)

func (c OTPChannel) Valid() bool {
	return c == OTPChannelVerify || c == OTPChannelReset
}
