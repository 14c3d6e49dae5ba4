package service

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidURL is matched by every *InvalidURLError.
var ErrInvalidURL = errors.New("invalid url")

// InvalidURLError reports why a URL was rejected before it reached storage.
type InvalidURLError struct {
	Reason string
}

func (e *InvalidURLError) Error() string { return "invalid url: " + e.Reason }

func (e *InvalidURLError) Is(target error) bool { return target == ErrInvalidURL }

// urlShape accepts scheme + (domain | localhost | IPv4) + optional port + optional path/query.
var urlShape = regexp.MustCompile(`(?i)^https?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,6}\.?|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

// NormalizeURL trims raw, defaults the scheme to https and validates the result.
func NormalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &InvalidURLError{Reason: "url cannot be empty"}
	}

	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return "", &InvalidURLError{Reason: "malformed url"}
	}
	if !urlShape.MatchString(trimmed) {
		return "", &InvalidURLError{Reason: "unsupported url format"}
	}
	return trimmed, nil
}
