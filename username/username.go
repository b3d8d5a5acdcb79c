// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package username validates public usernames.
package username

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinLength = 3
	MaxLength = 20
)

var (
	ErrEmpty             = errors.New("Username cannot be empty")
	ErrTooShort          = errors.New("Username must be at least 3 characters long")
	ErrTooLong           = errors.New("Username must be 20 characters or less")
	ErrSurroundingSpace  = errors.New("Username cannot have leading or trailing spaces")
	ErrRepeatedSpace     = errors.New("Username cannot have multiple consecutive spaces")
	ErrCharset           = errors.New("Username can only contain English letters, numbers, underscores, and hyphens")
	ErrLeadingDigit      = errors.New("Username cannot start with a number")
	ErrTrailingSeparator = errors.New("Username cannot end with a hyphen or underscore")
	ErrRepeatedSeparator = errors.New("Username cannot have consecutive hyphens or underscores")
	ErrReserved          = errors.New("This username is reserved and cannot be used.")
)

var (
	allowed           = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	repeatedSpace     = regexp.MustCompile(`\s{2,}`)
	repeatedSeparator = regexp.MustCompile(`[-_]{2,}`)
)

var reserved = map[string]struct{}{}

func init() {
	for _, name := range []string{
		"admin", "administrator", "root", "system", "support", "help", "info",
		"contact", "mail", "email", "webmaster", "postmaster", "hostmaster",
		"usenet", "news", "nobody", "noreply", "no-reply", "donotreply", "test",
		"demo", "example", "guest", "anonymous", "null", "undefined", "api",
		"www", "ftp", "pop", "smtp", "imap", "dns", "ns", "www-data", "daemon",
		"bin", "sys", "sync", "games", "man", "lp", "uucp", "proxy", "backup",
		"list", "irc", "gnats", "libuuid", "dhcp", "syslog", "klog", "bind",
		"statd", "messagebus", "avahi", "avahi-autoipd", "speech-dispatcher",
		"kernoops", "pulse", "rtkit", "saned", "usbmux", "colord", "hplip",
		"gdm", "whoopsie", "lightdm", "dnsmasq", "cups-pk-helper",
	} {
		reserved[name] = struct{}{}
	}
}

// Validate checks shape and charset rules. It does not check reservations;
// see IsReserved.
func Validate(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrEmpty
	}

	n := utf8.RuneCountInString(trimmed)
	if n < MinLength {
		return ErrTooShort
	}
	if n > MaxLength {
		return ErrTooLong
	}

	if name != trimmed {
		return ErrSurroundingSpace
	}
	if repeatedSpace.MatchString(name) {
		return ErrRepeatedSpace
	}
	if !allowed.MatchString(trimmed) {
		return ErrCharset
	}

	if trimmed[0] >= '0' && trimmed[0] <= '9' {
		return ErrLeadingDigit
	}
	if last := trimmed[len(trimmed)-1]; last == '-' || last == '_' {
		return ErrTrailingSeparator
	}
	if repeatedSeparator.MatchString(trimmed) {
		return ErrRepeatedSeparator
	}

	return nil
}

// IsReserved reports whether name is a system or role name, ignoring case.
func IsReserved(name string) bool {
	_, ok := reserved[strings.ToLower(name)]
	return ok
}
