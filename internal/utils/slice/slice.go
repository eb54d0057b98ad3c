package slice

import "strings"

// Contains reports whether str is present in slice.
func Contains(slice []string, str string) bool {
	for _, item := range slice {
		if item == str {
			return true
		}
	}
	return false
}

// ContainsPrefix returns the first element starting with prefix, or "".
func ContainsPrefix(slice []string, prefix string) string {
	for _, item := range slice {
		if strings.HasPrefix(item, prefix) {
			return item
		}
	}
	return ""
}

// SplitCSV splits a comma separated string, trimming whitespace and
// dropping empty entries.
func SplitCSV(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
