package ldap

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strings"
	"time"

	ldapv3 "github.com/go-ldap/ldap/v3"
)

// Conn is the subset of *ldap.Conn used for a login attempt.
type Conn interface {
	StartTLS(config *tls.Config) error
	Bind(username, password string) error
	UnauthenticatedBind(username string) error
	Search(searchRequest *ldapv3.SearchRequest) (*ldapv3.SearchResult, error)
	SearchWithPaging(searchRequest *ldapv3.SearchRequest, pagingSize uint32) (*ldapv3.SearchResult, error)
	SetTimeout(timeout time.Duration)
	Close() error
}

var _ Conn = &ldapv3.Conn{}

// Dialer opens a connection to a single LDAP URL.
type Dialer interface {
	DialURL(addr string, opts ...ldapv3.DialOpt) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(addr string, opts ...ldapv3.DialOpt) (Conn, error)

func (f DialerFunc) DialURL(addr string, opts ...ldapv3.DialOpt) (Conn, error) {
	return f(addr, opts...)
}

func dialURL(addr string, opts ...ldapv3.DialOpt) (Conn, error) {
	conn, err := ldapv3.DialURL(addr, opts...)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func NewClient(config *Config) *Client {
	return &Client{
		dialer:  DialerFunc(dialURL),
		timeout: config.Timeout,
	}
}

// WithDialer replaces the network dialer, mostly for tests.
func (c *Client) WithDialer(dialer Dialer) *Client {
	c.dialer = dialer
	return c
}

// Session is a single-use directory connection. It is opened for one login
// attempt and closed when the attempt completes.
type Session struct {
	conn     Conn
	endpoint Endpoint
	stop     func() bool
}

// Connect dials the endpoint, negotiates TLS and binds as the service account,
// or anonymously when credential is nil. Every failure is a ConnectionError.
func (c *Client) Connect(ctx context.Context, endpoint Endpoint, credential *ServiceCredential) (*Session, error) {
	session, err := c.open(ctx, endpoint)
	if err != nil {
		return nil, newError(KindConnection, endpoint.Address, err, "Error connecting to LDAP server: %v", err)
	}

	if credential != nil && credential.BindDN != "" {
		err = session.conn.Bind(credential.BindDN, credential.Password)
	} else {
		err = session.conn.UnauthenticatedBind("")
	}
	if err != nil {
		session.Close()
		return nil, newError(KindConnection, endpoint.Address, err, "Error connecting to LDAP server: %v", err)
	}

	return session, nil
}

func (c *Client) open(ctx context.Context, endpoint Endpoint) (*Session, error) {
	timeout, err := c.deadline(ctx)
	if err != nil {
		return nil, err
	}

	opts := []ldapv3.DialOpt{ldapv3.DialWithDialer(&net.Dialer{Timeout: timeout})}
	if strings.HasPrefix(endpoint.Address, "ldaps://") {
		opts = append(opts, ldapv3.DialWithTLSConfig(endpoint.TLS))
	}

	conn, err := c.dialer.DialURL(endpoint.Address, opts...)
	if err != nil {
		return nil, err
	}
	conn.SetTimeout(timeout)

	session := &Session{conn: conn, endpoint: endpoint}
	// Closing the connection unblocks any in-flight request when the caller gives up.
	session.stop = context.AfterFunc(ctx, func() { _ = conn.Close() })

	if endpoint.StartTLS {
		if err := conn.StartTLS(endpoint.TLS); err != nil {
			session.Close()
			return nil, err
		}
	}
	return session, nil
}

// deadline picks the shorter of the configured timeout and the time left on ctx.
func (c *Client) deadline(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		remaining := time.Until(dl)
		if remaining <= 0 {
			return 0, context.DeadlineExceeded
		}
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return 0, errors.New("no LDAP timeout configured")
	}
	return timeout, nil
}

func (s *Session) Endpoint() Endpoint {
	return s.endpoint
}

func (s *Session) Close() {
	if s == nil || s.conn == nil {
		return
	}
	if s.stop != nil {
		s.stop()
	}
	_ = s.conn.Close()
	s.conn = nil
}

// Ping runs a base-object search against base to confirm the bound session
// can still talk to the server.
func (s *Session) Ping(base string) error {
	searchRequest := ldapv3.NewSearchRequest(
		base,
		ldapv3.ScopeBaseObject,
		ldapv3.NeverDerefAliases,
		1,
		1,
		false,
		"(objectClass=*)",
		[]string{"objectClass"},
		nil,
	)

	if _, err := s.conn.Search(searchRequest); err != nil {
		return newError(KindConnection, s.endpoint.Address, err, "LDAP health check failed: %v", err)
	}
	return nil
}
