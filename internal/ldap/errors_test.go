package ldap

import (
	"errors"
	"fmt"
	"testing"

	ldapv3 "github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "ConnectionError", KindConnection.String())
	assert.Equal(t, "NotFound", KindNotFound.String())
	assert.Equal(t, "Ambiguous", KindAmbiguous.String())
	assert.Equal(t, "IncompleteEntry", KindIncompleteEntry.String())
	assert.Equal(t, "VerificationError", KindVerification.String())
	assert.Equal(t, "Unknown", Kind(0).String())
}

func TestPublicMessageHidesResolutionDetail(t *testing.T) {
	for _, kind := range []Kind{KindNotFound, KindAmbiguous, KindIncompleteEntry, KindVerification} {
		err := newError(kind, "ldap://ldap.example.com:389", nil, "detail for %s", kind)
		assert.Equal(t, PublicMessage, err.Public(), kind.String())
		assert.Contains(t, err.Error(), "detail for")
	}
}

func TestErrorCarriesLDAPCode(t *testing.T) {
	cause := ldapv3.NewError(ldapv3.LDAPResultInvalidCredentials, errors.New("invalid credentials"))
	err := newError(KindVerification, "ldap://x:389", cause, "LDAP bind failed: %v", cause)

	assert.Equal(t, uint16(ldapv3.LDAPResultInvalidCredentials), err.LDAPCode)
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("login: %w", err)
	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindVerification, kind)
}

func TestIsTransportFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", ldapv3.NewError(ldapv3.ErrorNetwork, errors.New("eof")), true},
		{"server down", ldapv3.NewError(ldapv3.LDAPResultServerDown, errors.New("down")), true},
		{"busy", ldapv3.NewError(ldapv3.LDAPResultBusy, errors.New("busy")), true},
		{"no such object", ldapv3.NewError(ldapv3.LDAPResultNoSuchObject, errors.New("missing")), false},
		{"invalid filter", ldapv3.NewError(ldapv3.ErrorFilterCompile, errors.New("bad filter")), false},
		{"plain timeout", errors.New("read tcp: i/o timeout"), true},
		{"plain other", errors.New("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransportFailure(tt.err))
		})
	}
}
