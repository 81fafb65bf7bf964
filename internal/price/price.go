// Package price handles price values from prediction market APIs
// without losing precision.
package price

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Price is a decimal price in millionths. Polymarket quotes outcome prices in
// [0, 1] with at most a few decimals, so six are enough.
type Price int64

var (
	_ json.Unmarshaler = (*Price)(nil)
	_ json.Marshaler   = Price(0)
)

const PriceScale int64 = 1_000_000

// maxIntDigits keeps the integer part inside int64 once scaled.
const maxIntDigits = 12

var (
	ErrEmpty    = errors.New("empty price")
	ErrTooLarge = errors.New("price too large")
)

// Parse reads an unsigned decimal string such as "0.42" or "1".
// Digits past the sixth decimal are truncated.
func Parse(s string) (Price, error) {
	if s == "" {
		return 0, ErrEmpty
	}

	var res int64
	i := 0
	digits := 0
	intDigits := 0

	for i < len(s) && s[i] != '.' {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("invalid price %q", s)
		}
		if res > 0 || s[i] != '0' {
			intDigits++
			if intDigits > maxIntDigits {
				return 0, fmt.Errorf("%w: %q", ErrTooLarge, s)
			}
		}
		res = res*10 + int64(s[i]-'0')*PriceScale
		digits++
		i++
	}

	if i < len(s) && s[i] == '.' {
		i++
		mult := PriceScale
		for i < len(s) {
			if s[i] < '0' || s[i] > '9' {
				return 0, fmt.Errorf("invalid price %q", s)
			}
			mult /= 10
			res += int64(s[i]-'0') * mult
			digits++
			i++
		}
	}

	if digits == 0 {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	return Price(res), nil
}

// FromFloat rounds f to the nearest millionth.
func FromFloat(f float64) Price {
	if f < 0 {
		return Price(f*float64(PriceScale) - 0.5)
	}
	return Price(f*float64(PriceScale) + 0.5)
}

func (p Price) Float64() float64 {
	return float64(p) / float64(PriceScale)
}

func (p Price) String() string {
	return strconv.FormatFloat(p.Float64(), 'f', -1, 64)
}

// UnmarshalJSON accepts both a quoted decimal string and a raw JSON number.
func (p *Price) UnmarshalJSON(data []byte) error {
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	// Else we assume that it is a raw number.

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}
