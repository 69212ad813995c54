package apperrors

import "errors"

// Validation errors represent malformed input at the edges of the
// consolidation pipeline. One bad record must never abort a cycle, so these
// are caught by the consolidation service, logged, and counted.
var (
	// ErrEmptySymbol indicates a broker returned a position with no symbol.
	ErrEmptySymbol = errors.New("symbol cannot be empty")

	// ErrInvalidQuantity indicates a position quantity that cannot be parsed
	// or is negative without an explicit short side.
	ErrInvalidQuantity = errors.New("invalid position quantity")

	// ErrInvalidUserID indicates a missing or empty user id parameter.
	ErrInvalidUserID = errors.New("user ID is required")

	// ErrInvalidBrokerID indicates a broker id that is not registered with
	// the adapter registry.
	ErrInvalidBrokerID = errors.New("unsupported broker ID")

	// ErrInvalidCredentials indicates broker credentials that failed
	// validation before being stored or used.
	ErrInvalidCredentials = errors.New("invalid broker credentials")

	// ErrEncryptionUnavailable indicates the process was started without a
	// credential encryption key, so connections cannot be created or read.
	ErrEncryptionUnavailable = errors.New("credential encryption is not configured")
)

// Terminal consolidation outcomes. These are distinguished results, not
// recoverable conditions: the cycle produced no usable portfolio.
var (
	// ErrNoActiveBrokers indicates the user has no enabled broker
	// connections, or every configured broker failed in the same cycle.
	// Callers surface a sentinel empty portfolio instead of a 5xx.
	ErrNoActiveBrokers = errors.New("no active broker connections")
)

// Entity errors represent missing records in the connection registry.
var (
	// ErrConnectionNotFound indicates a broker connection id that does not exist.
	ErrConnectionNotFound = errors.New("broker connection not found")

	// ErrDuplicateConnection indicates the user already has a connection for
	// the same broker.
	ErrDuplicateConnection = errors.New("broker connection already exists for this broker")
)

// Operation failures represent system-level errors from collaborators.
var (
	// ErrQuoteUnavailable indicates the market data source could not be
	// reached at all (distinct from a symbol simply having no quote).
	ErrQuoteUnavailable = errors.New("market data source unavailable")

	// ErrClassificationUnavailable indicates the asset classification
	// service could not be reached and no cached value exists.
	ErrClassificationUnavailable = errors.New("asset classification service unavailable")
)
