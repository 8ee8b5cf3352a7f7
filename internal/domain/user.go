// Package domain contains entity without logic, just meta-data
package domain

import (
	"strings"
	"time"
)

const (
	MaxUserIDLen      = 64
	MaxDisplayNameLen = 36
)

var (
	ErrDisplayNameTooLong = &Error{Kind: KindInvalidArgument, Msg: "display name too long"}
	ErrDisplayNameEmpty   = &Error{Kind: KindInvalidArgument, Msg: "display name empty"}
)

// UserID is the opaque anonymous session identifier of a browser.
type UserID string

// User is the participant directory record.
type User struct {
	ID                     UserID     `json:"id"`
	DisplayName            string     `json:"displayName,omitempty"`
	LastLivelinessUpdateAt *time.Time `json:"lastLivelinessUpdateAt,omitempty"`
}

// NormalizeDisplayName trims and validates a user supplied name.
func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return "", ErrDisplayNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return "", ErrDisplayNameTooLong
	}
	return name, nil
}
