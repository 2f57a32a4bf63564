package domain

import "time"

// AuthMethod records how a user first signed in.
type AuthMethod string

const (
	AuthMethodEmail  AuthMethod = "email"
	AuthMethodWallet AuthMethod = "wallet"
)

type User struct {
	UserID        string     `json:"id" dynamodbav:"user_id" gorm:"primaryKey;column:user_id"`
	Email         string     `json:"email,omitempty" dynamodbav:"email,omitempty" gorm:"column:email;index"`
	WalletAddress string     `json:"walletAddress,omitempty" dynamodbav:"wallet_address,omitempty" gorm:"column:wallet_address;index"`
	AuthMethod    AuthMethod `json:"authMethod" dynamodbav:"auth_method" gorm:"column:auth_method"`
	Role          string     `json:"-" dynamodbav:"role" gorm:"column:role"`
	CreatedAt     time.Time  `json:"createdAt" dynamodbav:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time  `json:"-" dynamodbav:"updated_at" gorm:"column:updated_at"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
