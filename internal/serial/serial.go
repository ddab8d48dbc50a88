// Package serial formats and allocates per-week document numbers of the form
// {year}-{week}-{sequence}.
package serial

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	MinWeek = 1
	MaxWeek = 53

	DefaultMaxAttempts = 3

	uniqueViolation = "23505"
)

// ErrConflict is returned once every allocation attempt lost a race.
var ErrConflict = errors.New("serial number conflict")

var ErrInvalidWeek = fmt.Errorf("report week must be between %d and %d", MinWeek, MaxWeek)

func Format(year, week, seq int) string {
	return fmt.Sprintf("%d-%d-%d", year, week, seq)
}

// Parse splits a serial into its parts.
func Parse(s string) (year, week, seq int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("malformed serial %q", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, convErr := strconv.Atoi(p)
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("malformed serial %q: %w", s, convErr)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}

func ValidateWeek(week int) error {
	if week < MinWeek || week > MaxWeek {
		return ErrInvalidWeek
	}
	return nil
}

// OffsetKey is the system_config key holding the numbering offset of year.
func OffsetKey(year int) string {
	return fmt.Sprintf("SERIAL_OFFSET_%d", year)
}

// ParseOffset reads a stored offset. Empty means no offset.
func ParseOffset(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse serial offset %q: %w", value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("serial offset %d is negative", n)
	}
	return n, nil
}

// Display turns an allocated sequence into the number shown on the note.
func Display(offset, seq int) int {
	return offset + seq
}

// IsConflict reports whether err is a unique violation, which for the
// allocator means another writer took the same sequence first.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Retry runs fn until it succeeds, fails with a non-conflict error, or
// maxAttempts conflicts have happened, in which case ErrConflict is returned.
func Retry(ctx context.Context, maxAttempts int, fn func(ctx context.Context, attempt int) error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if !IsConflict(err) {
			return err
		}
		last = err
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrConflict, maxAttempts, last)
}
