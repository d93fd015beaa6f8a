package domain

import (
	"fmt"
	"time"
)

// NonEmptyString проверяет, что строка содержит хотя бы один символ.
func NonEmptyString(field, s string) error {
	if len(s) < 1 {
		return NewError(KindStructural, fmt.Sprintf("The length of the %s cannot be less than 1 characters.", field))
	}
	return nil
}

// PositiveInt проверяет, что идентификатор/количество больше нуля.
func PositiveInt(field string, n int64) error {
	if n <= 0 {
		return NewError(KindStructural, fmt.Sprintf("%s must be greater than zero", field))
	}
	return nil
}

// NotFutureDate проверяет, что календарная дата d (UTC) не позже календарной даты now (UTC).
// Время суток отбрасывается до сравнения.
func NotFutureDate(field string, d, now time.Time) error {
	if DateOnly(d).After(DateOnly(now)) {
		return &Error{Kind: KindTemporal, Message: fmt.Sprintf("%s cannot be later than today", field)}
	}
	return nil
}

// DateOnly приводит момент времени к полуночи его календарной даты в UTC.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
