package monitoring

import "strings"

// NormalizePath collapses session IDs so label cardinality stays bounded
func NormalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, "prev_") || strings.HasPrefix(part, "term_") {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
