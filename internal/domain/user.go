// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	MaxUsernameLen = 36
	DefaultName    = "guest"
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

// ConnID identifies one live transport connection. It is the only identity
// the floor logic trusts; display names may collide.
type ConnID string

// Participant is a connection plus the name it asked to be shown as.
type Participant struct {
	ConnID      ConnID `json:"id"`
	DisplayName string `json:"name"`
}

// NewParticipant validates the display name before building the value.
func NewParticipant(id ConnID, name string) (Participant, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return Participant{}, err
	}
	return Participant{ConnID: id, DisplayName: name}, nil
}

// NormalizeName trims the name and enforces the length limit in runes.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrUsernameEmpty
	}
	if utf8.RuneCountInString(name) > MaxUsernameLen {
		return "", ErrUsernameTooLong
	}
	return name, nil
}
