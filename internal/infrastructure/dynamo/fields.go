package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldRevoked      = "revoked"
	fieldReplacedBy   = "replaced_by"
	fieldPasswordHash = "password_hash"
	fieldVerified     = "verified"
	fieldUpdatedAt    = "updated_at"
)
