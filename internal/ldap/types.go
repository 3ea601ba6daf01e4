package ldap

import (
	"context"
	"crypto/tls"
	"time"
)

// =================================================
// LDAP Service Interface
// =================================================

type Service interface {
	// Authentication
	Authenticate(ctx context.Context, login, password string) (*Identity, error)

	// Group Membership
	IsMemberOf(ctx context.Context, username, groupDN string) (bool, error)

	// Connection Management
	HealthCheck(ctx context.Context) error
	Endpoints() []Endpoint
}

type LDAPService struct {
	client     *Client
	config     *Config
	endpoints  []Endpoint
	credential *ServiceCredential
	observer   Observer
}

// Observer receives per-stage timings and directory failures. The metrics
// package provides the production implementation.
type Observer interface {
	ObserveStage(stage string, d time.Duration)
	ObserveError(kind Kind)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration) {}
func (nopObserver) ObserveError(Kind)                  {}

// =================================================
// LDAP Client
// =================================================

type Config struct {
	Servers       []string      `envconfig:"LDAP_SERVER" default:"localhost"`
	Port          int           `envconfig:"LDAP_PORT"`
	StartTLS      bool          `envconfig:"LDAP_START_TLS" default:"false"`
	SkipTLSVerify bool          `envconfig:"LDAP_SKIP_TLS_VERIFY" default:"false"`
	CAFile        string        `envconfig:"LDAP_TLS_CA_FILE"`
	BindDN        string        `envconfig:"LDAP_BIND_DN"`
	BindPassword  string        `envconfig:"LDAP_BIND_PASSWORD"`
	Timeout       time.Duration `envconfig:"LDAP_TIMEOUT" default:"10s"`

	SearchBase   string `envconfig:"LDAP_SEARCH_BASE"`
	SearchFilter string `envconfig:"LDAP_SEARCH_FILTER_ADDITIONAL"`
	PageSize     uint32 `envconfig:"LDAP_PAGE_SIZE" default:"5"`

	UsernameAttribute string `envconfig:"LDAP_USERNAME_ATTRIBUTE" default:"uid"`
	EmailAttribute    string `envconfig:"LDAP_EMAIL_ATTRIBUTE" default:"mail"`
	FullNameAttribute string `envconfig:"LDAP_FULL_NAME_ATTRIBUTE" default:"displayName"`

	GroupObjectClass     string `envconfig:"LDAP_GROUP_OBJECT_CLASS" default:"posixGroup"`
	GroupMemberAttribute string `envconfig:"LDAP_GROUP_MEMBER_ATTRIBUTE" default:"memberUid"`
	GroupDN              string `envconfig:"LDAP_GROUP_DN"`
	AdminGroupDN         string `envconfig:"LDAP_ADMIN_GROUP_DN"`
}

type Client struct {
	dialer  Dialer
	timeout time.Duration
}

// Endpoint is one directory server. An ldaps:// address implies TLS from the
// first byte; StartTLS upgrades a plain connection before any bind.
type Endpoint struct {
	Address  string
	StartTLS bool
	TLS      *tls.Config
}

// ServiceCredential is the account used for the search bind. A nil
// credential or an empty BindDN means an anonymous bind.
type ServiceCredential struct {
	BindDN   string
	Password string
}

// =================================================
// Search
// =================================================

type AttributeMap struct {
	Username string
	Email    string
	FullName string
}

type SearchSpec struct {
	Base     string
	Filter   string
	PageSize uint32
}

type GroupSpec struct {
	ObjectClass     string
	MemberAttribute string
}

// Entry is a single search result. Attribute values are decoded from their
// wire bytes and keyed by the attribute name that was requested.
type Entry struct {
	DN         string
	Attributes map[string][]string
}

// Identity is the result of a successful search and bind.
type Identity struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	DN       string `json:"-"`
}
