// Package secret wraps sensitive string values (passwords, signing keys) so
// they cannot leak through logging or serialization. Call Reveal to get the
// underlying value at the point of use.
package secret

const redacted = "[REDACTED]"

// String holds a sensitive value. fmt verbs, JSON encoding and text encoding
// all render it as a fixed placeholder.
type String string

// Reveal returns the wrapped value.
func (s String) Reveal() string { return string(s) }

// Bytes returns the wrapped value as a byte slice.
func (s String) Bytes() []byte { return []byte(s) }

// IsZero reports whether the secret is empty.
func (s String) IsZero() bool { return len(s) == 0 }

func (s String) String() string   { return redacted }
func (s String) GoString() string { return redacted }

func (s String) MarshalJSON() ([]byte, error) { return []byte(`"` + redacted + `"`), nil }

func (s String) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// UnmarshalText accepts the raw value, so secrets can be decoded from config
// and request bodies.
func (s *String) UnmarshalText(b []byte) error {
	*s = String(b)
	return nil
}
