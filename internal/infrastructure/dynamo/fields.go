package dynamo

// DynamoDB attribute names used in keys and expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID        = "user_id"
	fieldEmail         = "email"
	fieldWalletAddress = "wallet_address"
	fieldAuthMethod    = "auth_method"
	fieldRole          = "role"
	fieldUpdatedAt     = "updated_at"
	fieldOptionID      = "option_id"
	fieldCode          = "code"
	fieldExpiresAt     = "expires_at"
	fieldExpiresAtMs   = "expires_at_ms"
)

// Index names.
const (
	indexEmail  = "email-index"
	indexWallet = "wallet_address-index"
)
