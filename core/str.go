package core

import (
	"strings"
	"unicode/utf8"
)

// Str is a borrowed view of host-owned bytes (ngx_str_t). It stays valid
// for the lifetime of the arena that holds the bytes.
type Str []byte

// NewStr copies s into a Str.
func NewStr(s string) Str {
	return Str(s)
}

func (s Str) Len() int {
	return len(s)
}

func (s Str) IsEmpty() bool {
	return len(s) == 0
}

func (s Str) Bytes() []byte {
	return s
}

// ToStr returns the contents as a string if they are valid UTF-8.
func (s Str) ToStr() (string, error) {
	if !utf8.Valid(s) {
		return "", ErrInvalidValue
	}
	return string(s), nil
}

// String returns the contents with invalid UTF-8 replaced.
func (s Str) String() string {
	if utf8.Valid(s) {
		return string(s)
	}
	return strings.ToValidUTF8(string(s), "�")
}
