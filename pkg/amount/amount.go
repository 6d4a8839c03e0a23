// Package amount implements the ledger's integer amount type.
//
// Amounts are arbitrary-precision underneath but bounded to the signed
// 128-bit range; any operation that would leave that range fails instead of
// wrapping, and the enclosing ledger call aborts with an arithmetic fault.
// Amounts persist as decimal text and marshal to JSON strings so no backend
// or client truncates them to 64 bits.
package amount

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrOverflow is returned when a result exceeds the signed 128-bit range.
	ErrOverflow = errors.New("amount overflow")
	// ErrDivisionByZero is returned by MulDiv with a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")

	maxI128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minI128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// Amount is a signed 128-bit-bounded integer quantity of tokens, dividends,
// or valuation units. The zero value is usable and equals zero.
type Amount struct {
	i big.Int
}

// Zero returns the zero amount.
func Zero() Amount {
	return Amount{}
}

// FromInt64 builds an Amount from a machine integer.
func FromInt64(v int64) Amount {
	var a Amount
	a.i.SetInt64(v)
	return a
}

// Parse builds an Amount from decimal text, enforcing the 128-bit bound.
func Parse(s string) (Amount, error) {
	var a Amount
	if _, ok := a.i.SetString(s, 10); !ok {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	if outOfRange(&a.i) {
		return Amount{}, ErrOverflow
	}
	return a, nil
}

// MustParse is Parse for test fixtures and constants; it panics on error.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func outOfRange(v *big.Int) bool {
	return v.Cmp(maxI128) > 0 || v.Cmp(minI128) < 0
}

// Add returns a+b, failing with ErrOverflow beyond the 128-bit range.
func (a Amount) Add(b Amount) (Amount, error) {
	var r Amount
	r.i.Add(&a.i, &b.i)
	if outOfRange(&r.i) {
		return Amount{}, ErrOverflow
	}
	return r, nil
}

// Sub returns a-b, failing with ErrOverflow beyond the 128-bit range.
func (a Amount) Sub(b Amount) (Amount, error) {
	var r Amount
	r.i.Sub(&a.i, &b.i)
	if outOfRange(&r.i) {
		return Amount{}, ErrOverflow
	}
	return r, nil
}

// MulDiv returns a*b/c with the intermediate product taken at full
// precision, truncating toward zero. The pro-rata dividend share and the
// basis-point ownership calculation both reduce to this shape.
func (a Amount) MulDiv(b, c Amount) (Amount, error) {
	if c.i.Sign() == 0 {
		return Amount{}, ErrDivisionByZero
	}
	var r Amount
	r.i.Mul(&a.i, &b.i)
	r.i.Quo(&r.i, &c.i)
	if outOfRange(&r.i) {
		return Amount{}, ErrOverflow
	}
	return r, nil
}

// Cmp compares a and b: -1 if a < b, 0 if equal, +1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.i.Cmp(&b.i)
}

// Sign returns -1, 0, or +1 for negative, zero, and positive amounts.
func (a Amount) Sign() int {
	return a.i.Sign()
}

// IsPositive reports a > 0.
func (a Amount) IsPositive() bool {
	return a.i.Sign() > 0
}

// IsZero reports a == 0.
func (a Amount) IsZero() bool {
	return a.i.Sign() == 0
}

func (a Amount) String() string {
	return a.i.String()
}

// Int64 returns the amount as an int64 when it fits; callers only use this
// for display-scale values like basis points.
func (a Amount) Int64() (int64, bool) {
	if !a.i.IsInt64() {
		return 0, false
	}
	return a.i.Int64(), true
}

// Value implements driver.Valuer, persisting as decimal text.
func (a Amount) Value() (driver.Value, error) {
	return a.i.String(), nil
}

// Scan implements sql.Scanner for TEXT and NUMERIC columns.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		a.i.SetInt64(0)
		return nil
	case int64:
		a.i.SetInt64(v)
		return nil
	case string:
		return a.setString(v)
	case []byte:
		return a.setString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Amount", src)
	}
}

func (a *Amount) setString(s string) error {
	if _, ok := a.i.SetString(s, 10); !ok {
		return fmt.Errorf("invalid amount %q", s)
	}
	if outOfRange(&a.i) {
		return ErrOverflow
	}
	return nil
}

// MarshalJSON renders the amount as a JSON string to avoid 53-bit client
// truncation.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.i.String())
}

// UnmarshalJSON accepts either a JSON string or a bare number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Bare numbers arrive for small hand-written payloads.
		s = string(data)
	}
	return a.setString(s)
}
