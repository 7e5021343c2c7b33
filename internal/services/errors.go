package services

import (
	"errors"

	"github.com/ajramos/mailtui/internal/webmail"
)

// Standard service errors
var (
	// Validation errors, returned before any request is issued
	ErrInvalidInput     = errors.New("invalid input provided")
	ErrMissingMailbox   = errors.New("mailbox id cannot be empty")
	ErrUnknownAction    = errors.New("unknown action")
	ErrNoTarget         = errors.New("no message or thread to act on")
	ErrEmptyLabelName   = errors.New("label name cannot be empty")
	ErrInvalidLabelID   = errors.New("invalid label ID")
	ErrNotInTrash       = errors.New("only messages in trash can be deleted permanently")
	ErrNoRecipients     = errors.New("at least one recipient is required")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrStoreUnavailable = errors.New("saved search store not available")

	// Data errors
	ErrInvalidRef      = webmail.ErrInvalidRef
	ErrMessageNotFound = errors.New("message not found")
	ErrLabelUnresolved = errors.New("created label not found in label list")
	ErrNoActiveAccount = errors.New("no active account")
)

// IsValidationError reports whether err was raised before any request went out
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrMissingMailbox) ||
		errors.Is(err, ErrUnknownAction) ||
		errors.Is(err, ErrNoTarget) ||
		errors.Is(err, ErrEmptyLabelName) ||
		errors.Is(err, ErrInvalidLabelID) ||
		errors.Is(err, ErrNotInTrash) ||
		errors.Is(err, ErrNoRecipients) ||
		errors.Is(err, ErrUnknownCategory) ||
		errors.Is(err, ErrInvalidRef)
}

// IsPermanentError determines if an error will not go away by re-triggering the action
func IsPermanentError(err error) bool {
	return IsValidationError(err) ||
		errors.Is(err, webmail.ErrUnauthorized) ||
		errors.Is(err, webmail.ErrNotFound)
}
