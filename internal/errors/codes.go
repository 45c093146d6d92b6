package errors

// Category groups error codes by failure domain.
type Category string

const (
	CategoryConfig     Category = "config"
	CategoryNetwork    Category = "network"
	CategoryValidation Category = "validation"
	CategoryInternal   Category = "internal"
)

// Error codes. Network codes are retryable; the caller decides whether to
// retry in place or route the operation to the fallback store.
const (
	ErrCodeConfigInvalid      = "ERR_CONFIG_INVALID"
	ErrCodeNetworkTimeout     = "ERR_NETWORK_TIMEOUT"
	ErrCodeNetworkRefused     = "ERR_NETWORK_REFUSED"
	ErrCodeBackendUnavailable = "ERR_BACKEND_UNAVAILABLE"
	ErrCodeInvalidInput       = "ERR_INVALID_INPUT"
	ErrCodeInternal           = "ERR_INTERNAL"
)

// categoryFromCode derives the category from an error code.
func categoryFromCode(code string) Category {
	switch code {
	case ErrCodeConfigInvalid:
		return CategoryConfig
	case ErrCodeNetworkTimeout, ErrCodeNetworkRefused, ErrCodeBackendUnavailable:
		return CategoryNetwork
	case ErrCodeInvalidInput:
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// isRetryableCode reports whether operations failing with this code may
// succeed on retry.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeNetworkRefused, ErrCodeBackendUnavailable:
		return true
	default:
		return false
	}
}
