// Package ether converts between ether-denominated decimal strings and wei.
package ether

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits between ether and wei.
const Decimals int32 = 18

var (
	ErrEmptyAmount     = errors.New("amount is empty")
	ErrInvalidAmount   = errors.New("amount is not a decimal number")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrTooManyDecimals = errors.New("amount has more than 18 fractional digits")
	ErrAmountTooLarge  = errors.New("amount does not fit in uint256")
)

// MaxWeiBits is the width of a Solidity uint256.
const MaxWeiBits = 256

var weiPerEther = decimal.New(1, Decimals)

// ParseEther converts a decimal ether string ("0.25", "3") to wei. It rejects
// precision the chain cannot represent instead of rounding it away, and
// amounts wider than uint256. Exponent notation is not accepted.
func ParseEther(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, ErrEmptyAmount
	}
	if strings.ContainsAny(amount, "eE") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if d.IsNegative() {
		return nil, ErrNegativeAmount
	}
	if d.Exponent() < -Decimals {
		// 1.50 has exponent -2; trailing zeros do not count as precision
		if !d.Equal(d.Truncate(Decimals)) {
			return nil, ErrTooManyDecimals
		}
	}
	wei := d.Mul(weiPerEther).BigInt()
	if wei.BitLen() > MaxWeiBits {
		return nil, ErrAmountTooLarge
	}
	return wei, nil
}

// FormatEther renders wei as ether without trailing zeros ("1.5", "0").
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -Decimals).String()
}

// ToFiat multiplies a wei amount by the native currency price and rounds to
// cents.
func ToFiat(wei *big.Int, nativePrice float64) decimal.Decimal {
	if wei == nil || nativePrice <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -Decimals).
		Mul(decimal.NewFromFloat(nativePrice)).
		Round(2)
}
