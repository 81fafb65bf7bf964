package config

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Secret holds a base64-encoded API secret and implements the yaml
// unmarshaler. Polymarket hands out URL-safe base64 secrets, the standard
// alphabet is accepted too.
type Secret struct {
	raw []byte
}

// UnmarshalYAML decodes a base64-encoded secret.
func (s *Secret) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var encoded string
	if err := unmarshal(&encoded); err != nil {
		return err
	}

	if encoded == "" {
		return nil
	}

	raw, err := DecodeSecret(encoded)
	if err != nil {
		return fmt.Errorf("decode secret: %w", err)
	}

	s.raw = raw
	return nil
}

// DecodeSecret tries the URL-safe alphabet first, then the standard one.
func DecodeSecret(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	for _, enc := range []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	} {
		if raw, err := enc.DecodeString(encoded); err == nil {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("not valid base64")
}

// NewSecret wraps already decoded key material.
func NewSecret(raw []byte) Secret {
	return Secret{raw: raw}
}

func (s Secret) Bytes() []byte {
	return s.raw
}

func (s Secret) IsZero() bool {
	return len(s.raw) == 0
}

// String never prints the secret.
func (s Secret) String() string {
	if s.IsZero() {
		return ""
	}
	return "[redacted]"
}
