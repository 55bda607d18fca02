package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BalanceDecimals is the precision balances are displayed and echoed with
const BalanceDecimals = 4

// FormatBalance formats a display balance with BalanceDecimals decimals
// Example: FormatBalance(1.5) = "1.5000"
func FormatBalance(amount float64) string {
	return strconv.FormatFloat(amount, 'f', BalanceDecimals, 64)
}

// ParseBalance parses a decimal balance string. Values that cannot be
// displayed (NaN, infinities, hex floats) are rejected.
func ParseBalance(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}
	if strings.ContainsAny(s, "xXpP_") {
		return 0, fmt.Errorf("invalid decimal format '%s'", s)
	}

	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount '%s': %w", s, err)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("amount '%s' is not finite", s)
	}
	return amount, nil
}
