// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Ошибки валидации платёжной формы.
var (
	ErrCardName   = errors.New("cardholder name required")
	ErrCardNumber = errors.New("invalid card number")
	ErrCardExpiry = errors.New("invalid expiry")
	ErrCardCVV    = errors.New("invalid cvv")
)

// ValidateCardNumber проверяет номер карты: 16 цифр и контрольная сумма Луна.
// Пробелы между группами цифр допускаются.
func ValidateCardNumber(number string) bool {
	cleaned := strings.ReplaceAll(number, " ", "")
	if len(cleaned) != 16 {
		return false
	}

	sum := 0
	double := false

	for i := len(cleaned) - 1; i >= 0; i-- {
		ch := rune(cleaned[i])
		if !unicode.IsDigit(ch) {
			return false
		}
		digit := int(ch - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return sum%10 == 0
}

// ValidateExpiry проверяет срок действия в формате MM/YY и что карта не истекла
// на момент now.
func ValidateExpiry(expiry string, now time.Time) bool {
	parts := strings.Split(expiry, "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return false
	}

	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return false
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}

	curYear := now.Year() % 100
	curMonth := int(now.Month())

	if year < curYear {
		return false
	}
	if year == curYear && month < curMonth {
		return false
	}
	return true
}

// ValidateCVV проверяет трёхзначный код безопасности.
func ValidateCVV(cvv string) bool {
	if len(cvv) != 3 {
		return false
	}
	for _, ch := range cvv {
		if !unicode.IsDigit(ch) {
			return false
		}
	}
	return true
}

// CardFields проверяет все поля платёжной формы и возвращает первую ошибку.
// Форма отклоняется до любого изменения состояния.
func CardFields(name, number, expiry, cvv string, now time.Time) error {
	if strings.TrimSpace(name) == "" {
		return ErrCardName
	}
	if !ValidateCardNumber(number) {
		return fmt.Errorf("%w: must be 16 digits", ErrCardNumber)
	}
	if !ValidateExpiry(expiry, now) {
		return fmt.Errorf("%w: want MM/YY in the future", ErrCardExpiry)
	}
	if !ValidateCVV(cvv) {
		return fmt.Errorf("%w: want 3 digits", ErrCardCVV)
	}
	return nil
}
