package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrorKind classifies failures so the HTTP layer can pick a status code.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindConflict      ErrorKind = "conflict"
	KindAlreadyBooked ErrorKind = "already_booked"
	KindSlotTaken     ErrorKind = "slot_taken"
	KindInvalidState  ErrorKind = "invalid_state"
	KindNotFound      ErrorKind = "not_found"
	KindPermission    ErrorKind = "permission"
)

// Sentinels for errors.Is. An *AppError matches the sentinel of its kind.
var (
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("time window conflict")
	ErrAlreadyBooked = errors.New("invitation already booked")
	ErrSlotTaken     = errors.New("slot already taken")
	ErrInvalidState  = errors.New("invalid state transition")
	ErrNotFound      = errors.New("not found")
	ErrPermission    = errors.New("permission denied")
)

var kindSentinels = map[ErrorKind]error{
	KindValidation:    ErrValidation,
	KindConflict:      ErrConflict,
	KindAlreadyBooked: ErrAlreadyBooked,
	KindSlotTaken:     ErrSlotTaken,
	KindInvalidState:  ErrInvalidState,
	KindNotFound:      ErrNotFound,
	KindPermission:    ErrPermission,
}

// Public booking codes, one per rejection reason.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyBooked      = "ALREADY_BOOKED"
	CodeMissingField       = "MISSING_FIELD"
	CodeMalformedInput     = "MALFORMED_INPUT"
	CodeOutOfWindow        = "OUT_OF_WINDOW"
	CodeInsufficientWindow = "INSUFFICIENT_WINDOW"
	CodeExpired            = "EXPIRED"
	CodePastTime           = "PAST_TIME"
	CodeSlotTaken          = "SLOT_TAKEN"
	CodeValidation         = "VALIDATION_ERROR"
	CodeConflict           = "CONFLICT"
	CodeInvalidState       = "INVALID_STATE"
)

// AppError is the typed failure returned by every service operation.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Fields  map[string]string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) and friends match by kind.
func (e *AppError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// AsAppError unwraps err into an *AppError.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func newError(kind ErrorKind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

// NotFoundError hides whether the record is missing or owned by another store.
func NotFoundError(entity string) *AppError {
	return newError(KindNotFound, CodeNotFound, entity+" not found")
}

// ValidationError reports a single bad field.
func ValidationError(field, message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    CodeValidation,
		Message: message,
		Fields:  map[string]string{field: message},
	}
}

// ConflictError reports an overlapping time window.
func ConflictError(message string) *AppError {
	return newError(KindConflict, CodeConflict, message)
}

// InvalidStateError reports an illegal lifecycle transition.
func InvalidStateError(message string) *AppError {
	return newError(KindInvalidState, CodeInvalidState, message)
}

func bookingError(code, message string) *AppError {
	kind := KindValidation
	switch code {
	case CodeNotFound:
		kind = KindNotFound
	case CodeAlreadyBooked:
		kind = KindAlreadyBooked
	case CodeSlotTaken:
		kind = KindSlotTaken
	}
	return newError(kind, code, message)
}

const (
	slotIndexName       = "idx_reservation_therapist_slot"
	invitationIndexName = "idx_reservation_invitation"
)

// classifyUniqueViolation translates a storage uniqueness failure on the
// reservations table into the booking error it stands for. It returns nil for
// anything that is not a uniqueness violation.
func classifyUniqueViolation(err error) *AppError {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" {
			return nil
		}
		if pgErr.ConstraintName == invitationIndexName {
			return bookingError(CodeAlreadyBooked, "this invitation has already been booked")
		}
		return bookingError(CodeSlotTaken, "this time slot has already been booked")
	}

	msg := err.Error()
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") {
		if strings.Contains(msg, "invitation_id") || strings.Contains(msg, invitationIndexName) {
			return bookingError(CodeAlreadyBooked, "this invitation has already been booked")
		}
		return bookingError(CodeSlotTaken, "this time slot has already been booked")
	}
	return nil
}

// isUniqueViolation reports any uniqueness failure, whatever the index.
func isUniqueViolation(err error) bool {
	return classifyUniqueViolation(err) != nil
}
