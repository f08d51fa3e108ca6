package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// AmountSize is the fixed binary width of an Amount.
const AmountSize = 16

// maxAmount is 2^128 - 1, the ceiling every Amount is clamped to.
var maxAmount = func() uint256.Int {
	var m uint256.Int
	m.Lsh(uint256.NewInt(1), 128)
	m.SubUint64(&m, 1)
	return m
}()

// Amount is an unsigned 128-bit quantity. Balances, supplies, costs,
// incomes and prices are all Amounts.
//
// The arithmetic helpers saturate: results are clamped to [0, MaxAmount]
// rather than wrapping or failing. Use the *Checked variants when the
// caller needs to know that clamping happened.
type Amount struct {
	v uint256.Int
}

// NewAmount returns an Amount holding n.
func NewAmount(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// MaxAmount returns the largest representable Amount (2^128 - 1).
func MaxAmount() Amount {
	return Amount{v: maxAmount}
}

// ParseAmount parses a base-10 string. Values above MaxAmount are rejected.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("empty amount")
	}
	var v uint256.Int
	if err := v.SetFromDecimal(s); err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if v.Gt(&maxAmount) {
		return Amount{}, fmt.Errorf("amount %q exceeds 128 bits", s)
	}
	return Amount{v: v}, nil
}

// MustParseAmount is ParseAmount for constants; it panics on bad input.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountFromBytes decodes a 16-byte big-endian value.
func AmountFromBytes(b []byte) (Amount, error) {
	if len(b) != AmountSize {
		return Amount{}, fmt.Errorf("amount must be %d bytes, got %d", AmountSize, len(b))
	}
	var a Amount
	a.v.SetBytes(b)
	return a, nil
}

// Bytes returns the 16-byte big-endian encoding.
func (a Amount) Bytes() []byte {
	full := a.v.Bytes32()
	out := make([]byte, AmountSize)
	copy(out, full[32-AmountSize:])
	return out
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Cmp returns -1, 0 or +1 as a is less than, equal to or greater than b.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// Lt reports a < b.
func (a Amount) Lt(b Amount) bool { return a.v.Lt(&b.v) }

// Gt reports a > b.
func (a Amount) Gt(b Amount) bool { return a.v.Gt(&b.v) }

// Uint64 returns the amount clamped to the uint64 range.
func (a Amount) Uint64() uint64 {
	if !a.v.IsUint64() {
		return ^uint64(0)
	}
	return a.v.Uint64()
}

// Float64 returns the nearest float64, for metrics.
func (a Amount) Float64() float64 {
	return a.v.Float64()
}

// String returns the base-10 representation.
func (a Amount) String() string {
	return a.v.Dec()
}

// SaturatingAdd returns min(a + b, MaxAmount).
func (a Amount) SaturatingAdd(b Amount) Amount {
	sum, _ := a.CheckedAdd(b)
	return sum
}

// CheckedAdd returns the saturated sum and whether clamping happened.
func (a Amount) CheckedAdd(b Amount) (Amount, bool) {
	var out Amount
	// Both operands fit in 128 bits, so the 256-bit sum cannot overflow.
	out.v.Add(&a.v, &b.v)
	if out.v.Gt(&maxAmount) {
		return MaxAmount(), true
	}
	return out, false
}

// SaturatingSub returns max(a - b, 0).
func (a Amount) SaturatingSub(b Amount) Amount {
	diff, _ := a.CheckedSub(b)
	return diff
}

// CheckedSub returns the saturated difference and whether clamping happened.
func (a Amount) CheckedSub(b Amount) (Amount, bool) {
	if a.v.Lt(&b.v) {
		return Amount{}, true
	}
	var out Amount
	out.v.Sub(&a.v, &b.v)
	return out, false
}

// SaturatingMul returns min(a * b, MaxAmount).
func (a Amount) SaturatingMul(b Amount) Amount {
	prod, _ := a.CheckedMul(b)
	return prod
}

// CheckedMul returns the saturated product and whether clamping happened.
func (a Amount) CheckedMul(b Amount) (Amount, bool) {
	var out Amount
	if _, overflow := out.v.MulOverflow(&a.v, &b.v); overflow || out.v.Gt(&maxAmount) {
		return MaxAmount(), true
	}
	return out, false
}

// MarshalText encodes the amount as a decimal string.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a decimal string.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON encodes the amount as a quoted decimal string, since JSON
// numbers cannot carry 128 bits safely.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a quoted decimal string or a bare integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*a = Amount{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		s = str
	}
	return a.UnmarshalText([]byte(s))
}
