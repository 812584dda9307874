package chains

import (
	"fmt"
	"math/big"
	"strings"
)

// ToBaseUnits converts a decimal amount string to the token's smallest
// unit (multiply by 10^decimals, truncating any fractional dust).
func ToBaseUnits(amount string, decimals int) (*big.Int, error) {
	amountFloat, ok := new(big.Float).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("invalid decimal format: %s", amount)
	}

	multiplier := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	scaledAmount := new(big.Float).Mul(amountFloat, multiplier)

	scaledInt, _ := scaledAmount.Int(nil)
	return scaledInt, nil
}

// ToDecimalAmount converts a base-unit amount to its decimal representation
func ToDecimalAmount(amount *big.Int, decimals int) string {
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	wholePart := new(big.Int).Div(amount, divisor)
	remainder := new(big.Int).Mod(amount, divisor)

	// Format as decimal string
	if remainder.Cmp(big.NewInt(0)) == 0 {
		return wholePart.String()
	} else {
		// Pad remainder with leading zeros to match decimal places
		remainderStr := remainder.String()
		for len(remainderStr) < decimals {
			remainderStr = "0" + remainderStr
		}
		// Remove trailing zeros
		remainderStr = strings.TrimRight(remainderStr, "0")
		if remainderStr == "" {
			return wholePart.String()
		}
		return wholePart.String() + "." + remainderStr
	}
}
