package depfetch

import (
	"fmt"
	"strings"
)

// VersionPlaceholder is the token substituted by the dependency version
// when resolving a URL template.
const VersionPlaceholder = "{VERSION}"

// resolveTemplate substitutes the version into the template. Resolution is
// pure: the same template and version always yield the same base URL.
// Exactly one placeholder occurrence is required.
func resolveTemplate(tmpl, version string) (string, error) {
	switch n := strings.Count(tmpl, VersionPlaceholder); {
	case n == 0:
		return "", fmt.Errorf("%w: %q has no %s placeholder", ErrTemplate, tmpl, VersionPlaceholder)
	case n > 1:
		return "", fmt.Errorf("%w: %q has %d %s placeholders, want 1", ErrTemplate, tmpl, n, VersionPlaceholder)
	}
	return strings.Replace(tmpl, VersionPlaceholder, version, 1), nil
}
