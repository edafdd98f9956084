package domain

import "time"

// RefreshToken is one row per issued refresh token.
// PK: token (opaque 256-bit hex). Rotation marks the row revoked and links the
// replacement instead of deleting it, so a second presentation of a rotated
// token is detectable as reuse.
type RefreshToken struct {
	Token      string    `json:"-" dynamodbav:"token"`
	UserID     string    `json:"user_id" dynamodbav:"user_id"`
	ExpiresAt  int64     `json:"expires_at" dynamodbav:"expires_at"` // Unix seconds, also the table TTL
	Revoked    bool      `json:"revoked" dynamodbav:"revoked"`
	ReplacedBy string    `json:"-" dynamodbav:"replaced_by"`
	CreatedAt  time.Time `json:"created" dynamodbav:"created_at"`
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return t.ExpiresAt < now.Unix()
}
