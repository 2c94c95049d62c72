package common

import "strings"

func IsHttpsURL(s string) bool {
	return strings.HasPrefix(strings.ToLower(s), "https://")
}

func IsHttpURL(s string) bool {
	return strings.HasPrefix(strings.ToLower(s), "http://")
}
