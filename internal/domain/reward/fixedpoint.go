package reward

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// TokenDecimals is the precision of on-chain token amounts.
const TokenDecimals = 18

var (
	errNotFinite = errors.New("value is not finite")
	errNegative  = errors.New("value is negative")
	errOverflow  = errors.New("value overflows uint256")
)

// ToFixedPoint converts v into an integer with the given number of decimals.
// The float is read through its shortest round-trip decimal form, so 53.0775
// becomes 53077500000000000000 at 18 decimals. Digits beyond the precision are
// truncated. The result always fits in a uint256.
func ToFixedPoint(v float64, decimals int) (*big.Int, error) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return nil, errNotFinite
	case v < 0:
		return nil, errNegative
	}
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(v, 'g', -1, 64))
	if !ok {
		return nil, fmt.Errorf("parse %v", v)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	out := new(big.Int).Quo(r.Num(), r.Denom())
	if _, overflow := uint256.FromBig(out); overflow {
		return nil, errOverflow
	}
	return out, nil
}

// FormatFixedPoint renders a fixed-point integer as a decimal string without
// trailing zeros, e.g. 53077500000000000000 at 18 decimals is "53.0775".
func FormatFixedPoint(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	neg := v.Sign() < 0
	digits := new(big.Int).Abs(v).String()
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	whole, frac := digits[:len(digits)-decimals], strings.TrimRight(digits[len(digits)-decimals:], "0")
	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
