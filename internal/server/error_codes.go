package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument  = 1000
	ErrCodeInvalidJSON      = 1001
	ErrCodeRequestTooLarge  = 1002
	ErrCodeInvalidID        = 1004
	ErrCodeMissingRequired  = 1009
	ErrCodeInvalidMultipart = 1014
	ErrCodeValidationFailed = 1015
	ErrCodeInvalidSignUp    = 1016

	// Domain state (2xxx)
	ErrCodePrototypeNotFound = 2001
	ErrCodeUserNotFound      = 2002
	ErrCodeImageNotFound     = 2003
	ErrCodeEmailTaken        = 2101

	// Auth (3xxx)
	ErrCodeUnauthorized       = 3001
	ErrCodeForbidden          = 3002
	ErrCodeInvalidCredentials = 3004

	// Internal/system (4xxx)
	ErrCodeInternal       = 4001
	ErrCodeStoreFailure   = 4002
	ErrCodeBlobFailure    = 4003
	ErrCodeNotImplemented = 4005
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodePrototypeNotFound
	case 413:
		return ErrCodeRequestTooLarge
	case 422:
		return ErrCodeValidationFailed
	case 500:
		return ErrCodeInternal
	case 501:
		return ErrCodeNotImplemented
	default:
		return 0
	}
}
