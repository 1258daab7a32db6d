package repository

import (
	"errors"
	"strings"

	"evo_chat_server/pkg/errorx"

	"gorm.io/gorm"
)

// wrapDBError maps a gorm error to a business code:
//   - ErrRecordNotFound -> CodeNotFound
//   - unique constraint violation -> CodeConflict
//   - anything else -> CodeDBError
func wrapDBError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errorx.Wrap(err, classify(err), msg)
}

// wrapDBErrorf is wrapDBError with a formatted message.
func wrapDBErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errorx.Wrapf(err, classify(err), format, args...)
}

func classify(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errorx.CodeNotFound
	case isUniqueViolation(err):
		return errorx.CodeConflict
	default:
		return errorx.CodeDBError
	}
}

// isUniqueViolation recognises duplicate-key errors whether or not the dialector translated them.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "Duplicate entry") || // mysql 1062
		strings.Contains(msg, "duplicate key value") // postgres 23505
}
