package util

import (
	"net/url"
	"strings"
)

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

func IsURL(value string) bool {
	u, err := url.ParseRequestURI(value)
	if err != nil {
		return false
	}

	return u.Scheme != "" && u.Host != ""
}

// IsDataURI reports whether value is an inline base64 payload such as
// "data:image/jpeg;base64,...".
func IsDataURI(value string) bool {
	return strings.HasPrefix(value, "data:") && strings.Contains(value, ";base64,")
}
