package ldap

import (
	"context"
	"strings"
	"unicode/utf8"

	ldapv3 "github.com/go-ldap/ldap/v3"
)

// =================================================
// Public Functions
// =================================================

// Resolve searches spec.Base for filter and returns the single matching
// entry. Zero matches, several matches and entries missing one of the mapped
// attributes are all rejected here, before any password is tried.
func (s *Session) Resolve(spec SearchSpec, filter string, attrs AttributeMap) (*Entry, error) {
	names := []string{attrs.Username, attrs.Email, attrs.FullName}

	searchRequest := ldapv3.NewSearchRequest(
		spec.Base,
		ldapv3.ScopeWholeSubtree,
		ldapv3.NeverDerefAliases,
		0,
		0,
		false,
		filter,
		names,
		nil,
	)

	searchResult, err := s.conn.SearchWithPaging(searchRequest, spec.PageSize)
	if err != nil {
		if isTransportFailure(err) {
			return nil, newError(KindConnection, s.endpoint.Address, err, "Error connecting to LDAP server: %v", err)
		}
		return nil, newError(KindNotFound, s.endpoint.Address, err, "LDAP login incorrect: %v", err)
	}

	var entries []*ldapv3.Entry
	for _, entry := range searchResult.Entries {
		// Only real entries; referrals and paging artifacts carry no attributes.
		if entry == nil || entry.DN == "" || len(entry.Attributes) == 0 {
			continue
		}
		entries = append(entries, entry)
	}

	switch {
	case len(entries) == 0:
		return nil, newError(KindNotFound, s.endpoint.Address, nil, "LDAP login not found")
	case len(entries) > 1:
		return nil, newError(KindAmbiguous, s.endpoint.Address, nil, "LDAP login could not be determined.")
	}

	entry := &Entry{
		DN:         entries[0].DN,
		Attributes: make(map[string][]string, len(names)),
	}
	for _, name := range names {
		values, ok := decodeValues(entries[0], name)
		if !ok {
			return nil, newError(KindIncompleteEntry, s.endpoint.Address, nil, "LDAP login is invalid.")
		}
		entry.Attributes[name] = values
	}

	return entry, nil
}

// Identity extracts the first value of each mapped attribute.
func (e *Entry) Identity(attrs AttributeMap) Identity {
	return Identity{
		Username: e.first(attrs.Username),
		Email:    e.first(attrs.Email),
		FullName: e.first(attrs.FullName),
		DN:       e.DN,
	}
}

// Verify proves the password by binding as dn on a fresh connection to the
// same endpoint. Whatever goes wrong, the caller only learns that it did.
func (c *Client) Verify(ctx context.Context, endpoint Endpoint, dn, password string) error {
	// An empty password would turn into an unauthenticated bind on many servers.
	if password == "" {
		return newError(KindVerification, endpoint.Address, nil, "LDAP bind failed: empty password")
	}

	session, err := c.open(ctx, endpoint)
	if err != nil {
		return newError(KindVerification, endpoint.Address, err, "LDAP bind failed: %v", err)
	}
	defer session.Close()

	if err := session.conn.Bind(dn, password); err != nil {
		return newError(KindVerification, endpoint.Address, err, "LDAP bind failed: %v", err)
	}
	return nil
}

// =================================================
// Private Functions
// =================================================

func (e *Entry) first(name string) string {
	values := e.Attributes[name]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// decodeValues returns the UTF-8 values of the named attribute. Attribute
// names are matched case-insensitively, as servers may echo them back in a
// different case. The first value must be present and non-blank.
func decodeValues(entry *ldapv3.Entry, name string) ([]string, bool) {
	for _, attr := range entry.Attributes {
		if !strings.EqualFold(attr.Name, name) {
			continue
		}

		raw := attr.ByteValues
		if len(raw) == 0 {
			for _, v := range attr.Values {
				raw = append(raw, []byte(v))
			}
		}
		if len(raw) == 0 {
			return nil, false
		}

		values := make([]string, 0, len(raw))
		for _, b := range raw {
			if !utf8.Valid(b) {
				return nil, false
			}
			values = append(values, string(b))
		}
		if strings.TrimSpace(values[0]) == "" {
			return nil, false
		}
		return values, true
	}
	return nil, false
}
