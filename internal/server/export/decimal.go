package export

import (
	"math/big"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// frequencyScale is the number of fractional MHz digits kept in FREQ.
const frequencyScale = 6

var (
	bigTen = big.NewInt(10)
	bigTwo = big.NewInt(2)
)

// FrequencyMHz converts a kHz value to MHz rounded half away from zero to
// six fractional digits, with trailing zeros removed.
func FrequencyMHz(khz pgtype.Numeric) (string, bool) {
	if !khz.Valid || khz.NaN || khz.InfinityModifier != pgtype.Finite || khz.Int == nil {
		return "", false
	}
	unscaled := new(big.Int).Set(khz.Int)
	exp := khz.Exp - 3

	if exp < -frequencyScale {
		unscaled = roundHalfUp(unscaled, int64(-frequencyScale-exp))
		exp = -frequencyScale
	}
	unscaled, exp = stripTrailingZeros(unscaled, exp)
	return plain(unscaled, exp), true
}

// FormatDecimal renders a stored numeric in plain notation keeping its
// scale. Invalid values render as an empty string.
func FormatDecimal(n pgtype.Numeric) string {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return ""
	}
	return plain(n.Int, n.Exp)
}

// roundHalfUp divides v by 10^digits, rounding ties away from zero.
func roundHalfUp(v *big.Int, digits int64) *big.Int {
	div := new(big.Int).Exp(bigTen, big.NewInt(digits), nil)
	q, r := new(big.Int).QuoRem(v, div, new(big.Int))
	r.Abs(r).Mul(r, bigTwo)
	if r.Cmp(div) >= 0 {
		if v.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}
	return q
}

func stripTrailingZeros(v *big.Int, exp int32) (*big.Int, int32) {
	if v.Sign() == 0 {
		return new(big.Int), 0
	}
	v = new(big.Int).Set(v)
	r := new(big.Int)
	q := new(big.Int)
	for {
		q.QuoRem(v, bigTen, r)
		if r.Sign() != 0 {
			break
		}
		v.Set(q)
		exp++
	}
	return v, exp
}

// plain renders v * 10^exp without exponent notation.
func plain(v *big.Int, exp int32) string {
	if exp >= 0 {
		scaled := new(big.Int).Mul(v, new(big.Int).Exp(bigTen, big.NewInt(int64(exp)), nil))
		return scaled.String()
	}

	digits := new(big.Int).Abs(v).String()
	frac := int(-exp)
	if len(digits) <= frac {
		digits = strings.Repeat("0", frac-len(digits)+1) + digits
	}
	point := len(digits) - frac

	var b strings.Builder
	if v.Sign() < 0 {
		b.WriteByte('-')
	}
	b.WriteString(digits[:point])
	b.WriteByte('.')
	b.WriteString(digits[point:])
	return b.String()
}
