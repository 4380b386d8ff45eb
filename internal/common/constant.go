package common

const (
	// AuthorizationHeader carries "Bearer <token>" on protected requests.
	AuthorizationHeader = "Authorization"

	// IdempotencyKeyHeader optionally deduplicates payment creation per owner.
	IdempotencyKeyHeader = "Idempotency-Key"

	// RetryAfterHeader is set on lockout responses.
	RetryAfterHeader = "Retry-After"
)
