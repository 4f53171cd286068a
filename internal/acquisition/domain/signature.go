package domain

import "strings"

// SignatureMatchesName reports whether a typed signature matches the
// client's registered full name. The comparison ignores case and
// surrounding whitespace; interior spacing must match.
func SignatureMatchesName(signature, registeredName string) bool {
	sig := strings.TrimSpace(signature)
	name := strings.TrimSpace(registeredName)
	if sig == "" || name == "" {
		return false
	}
	return strings.EqualFold(sig, name)
}
