package agent

import "golang.org/x/mod/semver"

// Compatible reports whether the server's API version satisfies the minimum
// the client was configured with. An empty minimum accepts anything.
//
// Versions are compared as semver when both parse; otherwise plain string
// comparison is used, which orders date versions (YYYY-MM-DD) correctly.
func Compatible(server, minimum string) bool {
	if minimum == "" {
		return true
	}
	if server == "" {
		return false
	}

	sv := normalizeVersion(server)
	mv := normalizeVersion(minimum)
	if !semver.IsValid(sv) || !semver.IsValid(mv) {
		return server >= minimum
	}
	return semver.Compare(sv, mv) >= 0
}

// normalizeVersion adds "v" prefix if needed for semver parsing.
func normalizeVersion(v string) string {
	if v == "" {
		return "v0.0.0"
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}
