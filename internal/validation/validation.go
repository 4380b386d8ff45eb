// Package validation holds the format checks applied to request fields
// before any storage access. Every check is pure.
//
// Boolean helpers (IsUsername, IsEmail, ...) answer yes or no. The Check
// variants return a Reason so callers can compose several checks with First
// and report the first violation in a fixed order.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/payportal/internal/common"
	"github.com/shopspring/decimal"
)

// Reason names why a value was rejected. The zero value means valid.
type Reason string

const (
	Valid Reason = ""

	UsernameFormat      Reason = "username_format"
	EmailFormat         Reason = "email_format"
	AccountNumberFormat Reason = "account_number_format"
	RoutingCodeFormat   Reason = "routing_code_format"
	IdentifierFormat    Reason = "identifier_format"

	PasswordTooShort      Reason = "password_too_short"
	PasswordTooLong       Reason = "password_too_long"
	PasswordMissingLetter Reason = "password_missing_letter"
	PasswordMissingDigit  Reason = "password_missing_digit"
	PasswordMissingSymbol Reason = "password_missing_symbol"
	PasswordInvalidChar   Reason = "password_invalid_character"

	RecipientRequired Reason = "recipient_required"
	AmountNotPositive Reason = "amount_not_positive"
	AmountPrecision   Reason = "amount_precision"
	AmountTooLarge    Reason = "amount_too_large"
	CurrencyFormat    Reason = "currency_format"
	NameRequired      Reason = "name_required"
)

var fields = map[Reason]string{
	UsernameFormat:        "username",
	EmailFormat:           "email",
	AccountNumberFormat:   "accountNumber",
	RoutingCodeFormat:     "swiftCode",
	IdentifierFormat:      "identifier",
	PasswordTooShort:      "password",
	PasswordTooLong:       "password",
	PasswordMissingLetter: "password",
	PasswordMissingDigit:  "password",
	PasswordMissingSymbol: "password",
	PasswordInvalidChar:   "password",
	RecipientRequired:     "recipient",
	AmountNotPositive:     "amount",
	AmountPrecision:       "amount",
	AmountTooLarge:        "amount",
	CurrencyFormat:        "currency",
	NameRequired:          "name",
}

// Field is the request field a reason refers to.
func (r Reason) Field() string {
	return fields[r]
}

const (
	MinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordLength = 72

	PasswordSymbols = `!@#$%^&*(),.?":{}|<>`
)

var (
	usernameRe      = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
	emailRe         = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	accountNumberRe = regexp.MustCompile(`^[0-9]{10}$`)
	routingCodeRe   = regexp.MustCompile(`^[A-Z0-9]{11}$`)
	currencyRe      = regexp.MustCompile(`^[A-Z]{3}$`)

	// MaxAmount is the exclusive upper bound of a NUMERIC(18,2) column.
	MaxAmount = decimal.New(1, 16)
)

func IsUsername(s string) bool      { return usernameRe.MatchString(s) }
func IsEmail(s string) bool         { return emailRe.MatchString(s) }
func IsAccountNumber(s string) bool { return accountNumberRe.MatchString(s) }
func IsRoutingCode(s string) bool   { return routingCodeRe.MatchString(s) }
func IsPassword(s string) bool      { return CheckPassword(s) == Valid }

// IsIdentifier accepts anything a customer may log in with.
func IsIdentifier(s string) bool {
	return IsUsername(s) || IsEmail(s) || IsAccountNumber(s)
}

func CheckUsername(s string) Reason      { return check(IsUsername(s), UsernameFormat) }
func CheckEmail(s string) Reason         { return check(IsEmail(s), EmailFormat) }
func CheckAccountNumber(s string) Reason { return check(IsAccountNumber(s), AccountNumberFormat) }
func CheckRoutingCode(s string) Reason   { return check(IsRoutingCode(s), RoutingCodeFormat) }
func CheckIdentifier(s string) Reason    { return check(IsIdentifier(s), IdentifierFormat) }

// CheckStaffIdentifier accepts a username or an email.
func CheckStaffIdentifier(s string) Reason {
	return check(IsUsername(s) || IsEmail(s), IdentifierFormat)
}

// CheckPassword enforces length, one ASCII letter, one digit and one symbol
// from PasswordSymbols. No other characters are allowed.
func CheckPassword(s string) Reason {
	if utf8.RuneCountInString(s) < MinPasswordLength {
		return PasswordTooShort
	}
	if len(s) > MaxPasswordLength {
		return PasswordTooLong
	}

	var letter, digit, symbol bool
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			letter = true
		case c >= '0' && c <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, c):
			symbol = true
		default:
			return PasswordInvalidChar
		}
	}

	switch {
	case !letter:
		return PasswordMissingLetter
	case !digit:
		return PasswordMissingDigit
	case !symbol:
		return PasswordMissingSymbol
	}
	return Valid
}

func CheckRecipient(s string) Reason { return check(strings.TrimSpace(s) != "", RecipientRequired) }
func CheckName(s string) Reason      { return check(strings.TrimSpace(s) != "", NameRequired) }

// CheckCurrency expects an upper-case ISO-4217 style code.
func CheckCurrency(s string) Reason { return check(currencyRe.MatchString(s), CurrencyFormat) }

// CheckAmount requires a strictly positive amount below MaxAmount with at
// most two decimals.
func CheckAmount(d decimal.Decimal) Reason {
	if !d.IsPositive() {
		return AmountNotPositive
	}
	if d.GreaterThanOrEqual(MaxAmount) {
		return AmountTooLarge
	}
	if !d.Equal(d.Round(2)) {
		return AmountPrecision
	}
	return Valid
}

func check(ok bool, r Reason) Reason {
	if ok {
		return Valid
	}
	return r
}

// First returns a *common.ValidationError for the first non-valid reason, or
// nil when every reason is Valid.
func First(reasons ...Reason) error {
	for _, r := range reasons {
		if r != Valid {
			return common.NewValidationError(r.Field(), string(r))
		}
	}
	return nil
}
