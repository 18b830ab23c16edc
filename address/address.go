package address

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
)

// Size is the length of an address in bytes
const Size = 32

// Address identifies a user, a program or a derived account
type Address [Size]byte

// Zero is the empty address
var Zero Address

// Parse decodes a base58 string into an Address
func Parse(s string) (Address, error) {
	var a Address
	raw, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) != Size {
		return a, fmt.Errorf("invalid address %q: expected %d bytes, got %d", s, Size, len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// String returns the base58 encoding of the address
func (a Address) String() string {
	return base58.Encode(a[:])
}

// IsZero reports whether the address is unset
func (a Address) IsZero() bool {
	return a == Zero
}

// MarshalText implements encoding.TextMarshaler
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON encodes the address as a base58 JSON string
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a base58 JSON string
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("address must be a string: %w", err)
	}
	return a.UnmarshalText([]byte(s))
}

// Value implements driver.Valuer so addresses are stored as base58 text
func (a Address) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner
func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case nil:
		return fmt.Errorf("cannot scan NULL into address")
	default:
		return fmt.Errorf("cannot scan %T into address", src)
	}
}
