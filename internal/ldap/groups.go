package ldap

import (
	ldapv3 "github.com/go-ldap/ldap/v3"
)

// =================================================
// Public Functions
// =================================================

// IsMemberOf searches under groupDN for a group of spec.ObjectClass whose
// member attribute contains username. The directory is only read.
func (s *Session) IsMemberOf(groupDN, username string, spec GroupSpec) (bool, error) {
	req := ldapv3.NewSearchRequest(
		groupDN,
		ldapv3.ScopeWholeSubtree, ldapv3.NeverDerefAliases, 1, 0, false,
		buildGroupFilter(username, spec),
		[]string{"dn"},
		nil,
	)

	searchResult, err := s.conn.Search(req)
	if err != nil {
		// One hit is enough; a size-limit error still carries it.
		if ldapv3.IsErrorWithCode(err, ldapv3.LDAPResultSizeLimitExceeded) && searchResult != nil && len(searchResult.Entries) > 0 {
			return true, nil
		}
		if ldapv3.IsErrorWithCode(err, ldapv3.LDAPResultNoSuchObject) {
			return false, nil
		}
		if isTransportFailure(err) {
			return false, newError(KindConnection, s.endpoint.Address, err, "Error connecting to LDAP server: %v", err)
		}
		return false, newError(KindNotFound, s.endpoint.Address, err, "failed to search group %s: %v", groupDN, err)
	}

	for _, entry := range searchResult.Entries {
		if entry != nil && entry.DN != "" {
			return true, nil
		}
	}
	return false, nil
}
