package domain

import "time"

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"` // empty for federation-only accounts
	Name         string    `json:"name" dynamodbav:"name"`
	Role         string    `json:"role" dynamodbav:"role"`
	Verified     bool      `json:"verified" dynamodbav:"verified"`
	// omitempty keeps google_sub-index sparse: DynamoDB rejects writes
	// carrying an empty string for a secondary-index key attribute.
	GoogleSub    string    `json:"-" dynamodbav:"google_sub,omitempty"`
	Picture      string    `json:"picture,omitempty" dynamodbav:"picture"`
	Bio          string    `json:"bio,omitempty" dynamodbav:"bio"`
	Linkedin     string    `json:"linkedin,omitempty" dynamodbav:"linkedin"`
	Github       string    `json:"github,omitempty" dynamodbav:"github"`
	Instagram    string    `json:"instagram,omitempty" dynamodbav:"instagram"`
	Facebook     string    `json:"facebook,omitempty" dynamodbav:"facebook"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

// HasPassword reports whether the account can authenticate locally.
// Federation-only accounts carry no hash at all.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Name      string `json:"name" validate:"required"`
	Bio       string `json:"bio"`
	Picture   string `json:"picture"`
	Linkedin  string `json:"linkedin"`
	Github    string `json:"github"`
	Instagram string `json:"instagram"`
	Facebook  string `json:"facebook"`
}

type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	Bio       *string `json:"bio"`
	Picture   *string `json:"picture"`
	Linkedin  *string `json:"linkedin"`
	Github    *string `json:"github"`
	Instagram *string `json:"instagram"`
	Facebook  *string `json:"facebook"`
}
