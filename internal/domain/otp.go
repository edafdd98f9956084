package domain

// OTP is a one-time verification code staged against an email address.
// PK: email — at most one live code per address; issuing a new one replaces it.
// ExpiresAt doubles as the DynamoDB TTL attribute (Unix seconds).
type OTP struct {
	Email     string `json:"email" dynamodbav:"email"`
	Code      string `json:"-" dynamodbav:"code"`
	CreatedAt int64  `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"`
}
