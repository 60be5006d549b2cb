package errors

import "fmt"

// DBError carries the store operation that failed alongside the driver
// message, so logs identify the query without leaking SQL to callers.
type DBError struct {
	Op      string
	Message string
	cause   error
}

func (e *DBError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("store: %s: %s: %v", e.Op, e.Message, e.cause)
	}
	return fmt.Sprintf("store: %s: %s", e.Op, e.Message)
}

func (e *DBError) Unwrap() error { return e.cause }

// NewDBError builds a plain store error.
func NewDBError(op, message string) *DBError {
	return &DBError{Op: op, Message: message}
}

// NewDBInternalError wraps an unexpected driver failure.
func NewDBInternalError(op string, cause error) *DBError {
	return &DBError{Op: op, Message: "internal database error", cause: cause}
}

// DBUniqueViolationError reports a unique-constraint violation.
type DBUniqueViolationError struct {
	DBError
	Column string
}

// DBForeignKeyViolationError reports a foreign-key violation.
type DBForeignKeyViolationError struct {
	DBError
	ForeignKeyTable string
}
