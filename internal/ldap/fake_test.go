package ldap

import (
	"crypto/tls"
	"errors"
	"sync"
	"time"

	ldapv3 "github.com/go-ldap/ldap/v3"
)

const (
	testBase      = "dc=example,dc=com"
	testServiceDN = "cn=svc,dc=example,dc=com"
	testServicePW = "svc-secret"
)

func testConfig() *Config {
	return &Config{
		Servers:              []string{"ldap.example.com"},
		Port:                 389,
		Timeout:              5 * time.Second,
		BindDN:               testServiceDN,
		BindPassword:         testServicePW,
		SearchBase:           testBase,
		PageSize:             5,
		UsernameAttribute:    "uid",
		EmailAttribute:       "mail",
		FullNameAttribute:    "displayName",
		GroupObjectClass:     "posixGroup",
		GroupMemberAttribute: "memberUid",
	}
}

func testAttrs() AttributeMap {
	return testConfig().AttributeMap()
}

func person(uid, mail, name string) *ldapv3.Entry {
	attrs := map[string][]string{"uid": {uid}}
	if mail != "" {
		attrs["mail"] = []string{mail}
	}
	if name != "" {
		attrs["displayName"] = []string{name}
	}
	return ldapv3.NewEntry("uid="+uid+",ou=people,"+testBase, attrs)
}

// fakeDirectory is an in-memory directory keyed by exact filter strings.
type fakeDirectory struct {
	mu sync.Mutex

	results   map[string][]*ldapv3.Entry
	passwords map[string]string
	dialErrs  map[string]error
	searchErr error
	tlsErr    error
	anonErr   error

	dials    []string
	binds    []string
	searches []*ldapv3.SearchRequest
	pageSize []uint32
	conns    []*fakeConn
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		results:   map[string][]*ldapv3.Entry{},
		passwords: map[string]string{},
		dialErrs:  map[string]error{},
	}
}

func (d *fakeDirectory) add(filter string, entries ...*ldapv3.Entry) {
	d.results[filter] = append(d.results[filter], entries...)
}

func (d *fakeDirectory) dialer() Dialer {
	return DialerFunc(func(addr string, opts ...ldapv3.DialOpt) (Conn, error) {
		d.mu.Lock()
		defer d.mu.Unlock()

		d.dials = append(d.dials, addr)
		if err := d.dialErrs[addr]; err != nil {
			return nil, err
		}
		conn := &fakeConn{dir: d, addr: addr}
		d.conns = append(d.conns, conn)
		return conn, nil
	})
}

func (d *fakeDirectory) bindCount(dn string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, b := range d.binds {
		if b == dn {
			n++
		}
	}
	return n
}

func (d *fakeDirectory) allClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range d.conns {
		if !c.closed {
			return false
		}
	}
	return true
}

type fakeConn struct {
	dir      *fakeDirectory
	addr     string
	closed   bool
	startTLS bool
	timeout  time.Duration
}

func (c *fakeConn) StartTLS(*tls.Config) error {
	c.startTLS = true
	return c.dir.tlsErr
}

func (c *fakeConn) Bind(username, password string) error {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()

	c.dir.binds = append(c.dir.binds, username)
	if c.closed {
		return ldapv3.NewError(ldapv3.ErrorNetwork, errors.New("ldap: connection closed"))
	}
	if username == testServiceDN && password == testServicePW {
		return nil
	}
	if pw, ok := c.dir.passwords[username]; ok && pw == password {
		return nil
	}
	return ldapv3.NewError(ldapv3.LDAPResultInvalidCredentials, errors.New("invalid credentials"))
}

func (c *fakeConn) UnauthenticatedBind(username string) error {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()

	c.dir.binds = append(c.dir.binds, "anonymous")
	return c.dir.anonErr
}

func (c *fakeConn) Search(req *ldapv3.SearchRequest) (*ldapv3.SearchResult, error) {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()

	c.dir.searches = append(c.dir.searches, req)
	if c.dir.searchErr != nil {
		return nil, c.dir.searchErr
	}
	return &ldapv3.SearchResult{Entries: c.dir.results[req.Filter]}, nil
}

func (c *fakeConn) SearchWithPaging(req *ldapv3.SearchRequest, pagingSize uint32) (*ldapv3.SearchResult, error) {
	c.dir.mu.Lock()
	c.dir.pageSize = append(c.dir.pageSize, pagingSize)
	c.dir.mu.Unlock()

	return c.Search(req)
}

func (c *fakeConn) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

func (c *fakeConn) Close() error {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()

	c.closed = true
	return nil
}
