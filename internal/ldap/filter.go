package ldap

import (
	"fmt"
	"strings"

	ldapv3 "github.com/go-ldap/ldap/v3"
)

// BuildFilter matches login against the username or the email attribute.
// The login is always escaped; extra is trusted configuration and is ANDed
// in verbatim, wrapped in parentheses when it has none.
func BuildFilter(login string, attrs AttributeMap, extra string) string {
	escaped := ldapv3.EscapeFilter(login)
	filter := fmt.Sprintf("(|(%s=%s)(%s=%s))", attrs.Username, escaped, attrs.Email, escaped)

	extra = strings.TrimSpace(extra)
	if extra == "" {
		return filter
	}
	if !strings.HasPrefix(extra, "(") {
		extra = "(" + extra + ")"
	}
	return fmt.Sprintf("(&%s%s)", filter, extra)
}

// buildGroupFilter matches a group entry of objectClass whose member
// attribute holds username.
func buildGroupFilter(username string, spec GroupSpec) string {
	return fmt.Sprintf("(&(objectClass=%s)(%s=%s))",
		ldapv3.EscapeFilter(spec.ObjectClass),
		spec.MemberAttribute,
		ldapv3.EscapeFilter(username),
	)
}
