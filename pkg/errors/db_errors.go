// Package errors classifies store errors so callers can tell overload apart from other failures.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ErrThrottled is the overload signal. errors.Is(err, ErrThrottled) holds for any
// classified throttling or lock contention error.
var ErrThrottled = errors.New("store throttled")

// DatabaseErrorType represents the type of database error.
type DatabaseErrorType int

const (
	// ErrorTypeUnknown represents an unknown database error.
	ErrorTypeUnknown DatabaseErrorType = iota
	// ErrorTypeThrottled represents a capacity or throughput limit (MySQL 1040, 1203, 1205, 1226).
	ErrorTypeThrottled
	// ErrorTypeDeadlock represents a deadlock error (MySQL 1213).
	ErrorTypeDeadlock
	// ErrorTypeDuplicateKey represents a duplicate key constraint violation (MySQL 1062).
	ErrorTypeDuplicateKey
	// ErrorTypeNotFound represents a record not found error.
	ErrorTypeNotFound
	// ErrorTypeConnectionError represents a database connection error.
	ErrorTypeConnectionError
	// ErrorTypeTimeout represents a deadline exceeded while talking to the store.
	ErrorTypeTimeout
)

func (t DatabaseErrorType) String() string {
	switch t {
	case ErrorTypeThrottled:
		return "throttled"
	case ErrorTypeDeadlock:
		return "deadlock"
	case ErrorTypeDuplicateKey:
		return "duplicate_key"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeConnectionError:
		return "connection"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// DatabaseError wraps a database error with classification information.
type DatabaseError struct {
	Type         DatabaseErrorType
	OriginalErr  error
	MySQLErrCode uint16
	Message      string
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if e.MySQLErrCode > 0 {
		return fmt.Sprintf("%s (MySQL error %d): %v", e.Message, e.MySQLErrCode, e.OriginalErr)
	}
	return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *DatabaseError) Unwrap() error {
	return e.OriginalErr
}

// Is reports overload classes as ErrThrottled.
func (e *DatabaseError) Is(target error) bool {
	return target == ErrThrottled && e.Overloaded()
}

// Overloaded reports whether the store asked the caller to back off.
func (e *DatabaseError) Overloaded() bool {
	return e.Type == ErrorTypeThrottled || e.Type == ErrorTypeDeadlock
}

// ClassifyDBError classifies a database error into a specific error type.
//
//   - ErrRecordNotFound → ErrorTypeNotFound
//   - MySQL 1040 (too many connections), 1203 (user connection limit),
//     1205 (lock wait timeout), 1226 (resource limit) → ErrorTypeThrottled
//   - MySQL 1213 (deadlock) → ErrorTypeDeadlock
//   - MySQL 1062 (duplicate entry) → ErrorTypeDuplicateKey
//   - context.DeadlineExceeded → ErrorTypeTimeout
//   - Connection errors → ErrorTypeConnectionError
//
// An error that is already a *DatabaseError is returned as is.
func ClassifyDBError(err error) *DatabaseError {
	if err == nil {
		return nil
	}

	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return dbErr
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &DatabaseError{
			Type:        ErrorTypeNotFound,
			OriginalErr: err,
			Message:     "record not found",
		}
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return classifyMySQLError(err, mysqlErr)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &DatabaseError{
			Type:        ErrorTypeTimeout,
			OriginalErr: err,
			Message:     "database operation timed out",
		}
	}

	if isConnectionError(err.Error()) {
		return &DatabaseError{
			Type:        ErrorTypeConnectionError,
			OriginalErr: err,
			Message:     "database connection error",
		}
	}

	return &DatabaseError{
		Type:        ErrorTypeUnknown,
		OriginalErr: err,
		Message:     "unknown database error",
	}
}

func classifyMySQLError(err error, mysqlErr *mysql.MySQLError) *DatabaseError {
	dbErr := &DatabaseError{
		OriginalErr:  err,
		MySQLErrCode: mysqlErr.Number,
	}

	switch mysqlErr.Number {
	case 1040: // ER_CON_COUNT_ERROR
		dbErr.Type, dbErr.Message = ErrorTypeThrottled, "too many connections"
	case 1203: // ER_TOO_MANY_USER_CONNECTIONS
		dbErr.Type, dbErr.Message = ErrorTypeThrottled, "user connection limit reached"
	case 1205: // ER_LOCK_WAIT_TIMEOUT
		dbErr.Type, dbErr.Message = ErrorTypeThrottled, "lock wait timeout exceeded"
	case 1226: // ER_USER_LIMIT_REACHED
		dbErr.Type, dbErr.Message = ErrorTypeThrottled, "resource limit exceeded"
	case 1213: // ER_LOCK_DEADLOCK
		dbErr.Type, dbErr.Message = ErrorTypeDeadlock, "deadlock detected"
	case 1062: // ER_DUP_ENTRY
		dbErr.Type, dbErr.Message = ErrorTypeDuplicateKey, "duplicate key constraint violation"
	default:
		dbErr.Type, dbErr.Message = ErrorTypeUnknown, "MySQL error"
	}

	return dbErr
}

var connectionKeywords = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"connection lost",
	"can't connect",
	"dial tcp",
	"invalid connection",
	"bad connection",
}

func isConnectionError(errMsg string) bool {
	errMsg = strings.ToLower(errMsg)
	for _, keyword := range connectionKeywords {
		if strings.Contains(errMsg, keyword) {
			return true
		}
	}
	return false
}

// IsOverloadError reports whether err is a classified overload signal.
func IsOverloadError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrThrottled) {
		return true
	}
	return ClassifyDBError(err).Overloaded()
}

// IsDuplicateKeyError checks if the error is a duplicate key constraint violation.
func IsDuplicateKeyError(err error) bool {
	dbErr := ClassifyDBError(err)
	return dbErr != nil && dbErr.Type == ErrorTypeDuplicateKey
}

// IsNotFoundError checks if the error is a record not found error.
func IsNotFoundError(err error) bool {
	dbErr := ClassifyDBError(err)
	return dbErr != nil && dbErr.Type == ErrorTypeNotFound
}
