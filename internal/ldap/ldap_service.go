package ldap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cpp-cyber/ldapauth/internal/logger"
	"github.com/hashicorp/go-multierror"
)

var _ Service = (*LDAPService)(nil)

func NewLDAPService(config *Config) (*LDAPService, error) {
	endpoints, err := config.Endpoints()
	if err != nil {
		return nil, fmt.Errorf("failed to load LDAP endpoints: %w", err)
	}

	return &LDAPService{
		client:     NewClient(config),
		config:     config,
		endpoints:  endpoints,
		credential: config.Credential(),
		observer:   nopObserver{},
	}, nil
}

func (s *LDAPService) WithDialer(dialer Dialer) *LDAPService {
	s.client.WithDialer(dialer)
	return s
}

func (s *LDAPService) WithObserver(observer Observer) *LDAPService {
	if observer != nil {
		s.observer = observer
	}
	return s
}

func (s *LDAPService) Endpoints() []Endpoint {
	return s.endpoints
}

func (s *LDAPService) Config() *Config {
	return s.config
}

// Authenticate tries each endpoint in order. A server that cannot be reached
// moves the attempt on to the next one; any other outcome is final, so a
// password is never tried against more than one server.
func (s *LDAPService) Authenticate(ctx context.Context, login, password string) (*Identity, error) {
	errs := newErrorList()
	for _, endpoint := range s.endpoints {
		identity, err := s.authenticate(ctx, endpoint, login, password)
		if err == nil {
			return identity, nil
		}

		kind, _ := KindOf(err)
		s.observer.ObserveError(kind)
		if kind != KindConnection {
			return nil, err
		}

		logger.Ctx(ctx).Warn().Err(err).Str("server", endpoint.Address).Msg("LDAP server unavailable")
		errs = multierror.Append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, exhausted(errs)
}

func (s *LDAPService) authenticate(ctx context.Context, endpoint Endpoint, login, password string) (*Identity, error) {
	log := logger.Ctx(ctx).With().Str("server", endpoint.Address).Logger()
	attrs := s.config.AttributeMap()

	start := time.Now()
	session, err := s.client.Connect(ctx, endpoint, s.credential)
	s.observer.ObserveStage("connect", time.Since(start))
	if err != nil {
		return nil, err
	}

	start = time.Now()
	entry, err := session.Resolve(s.config.SearchSpec(), BuildFilter(login, attrs, s.config.SearchFilter), attrs)
	session.Close()
	s.observer.ObserveStage("resolve", time.Since(start))
	if err != nil {
		log.Debug().Err(err).Msg("LDAP login could not be resolved")
		return nil, err
	}
	log.Debug().Str("dn", entry.DN).Msg("LDAP login resolved")

	start = time.Now()
	err = s.client.Verify(ctx, endpoint, entry.DN, password)
	s.observer.ObserveStage("verify", time.Since(start))
	if err != nil {
		log.Debug().Err(err).Str("dn", entry.DN).Msg("LDAP bind failed")
		return nil, err
	}

	identity := entry.Identity(attrs)
	return &identity, nil
}

// IsMemberOf reports whether username belongs to a group under groupDN,
// asking the first endpoint that answers. An empty groupDN means the
// configured LDAP_GROUP_DN.
func (s *LDAPService) IsMemberOf(ctx context.Context, username, groupDN string) (bool, error) {
	if groupDN == "" {
		groupDN = s.config.GroupDN
	}
	if username == "" || groupDN == "" {
		return false, fmt.Errorf("username and group DN cannot be empty")
	}

	errs := newErrorList()
	for _, endpoint := range s.endpoints {
		member, err := s.isMemberOf(ctx, endpoint, username, groupDN)
		if err == nil {
			return member, nil
		}
		if !IsConnectionError(err) {
			return false, err
		}
		errs = multierror.Append(errs, err)
	}
	return false, exhausted(errs)
}

func (s *LDAPService) isMemberOf(ctx context.Context, endpoint Endpoint, username, groupDN string) (bool, error) {
	start := time.Now()
	defer func() { s.observer.ObserveStage("membership", time.Since(start)) }()

	session, err := s.client.Connect(ctx, endpoint, s.credential)
	if err != nil {
		return false, err
	}
	defer session.Close()

	return session.IsMemberOf(groupDN, username, s.config.GroupSpec())
}

// HealthCheck succeeds as soon as one endpoint accepts the service bind and
// answers a base search.
func (s *LDAPService) HealthCheck(ctx context.Context) error {
	errs := newErrorList()
	for _, endpoint := range s.endpoints {
		err := s.ping(ctx, endpoint)
		if err == nil {
			return nil
		}
		errs = multierror.Append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return exhausted(errs)
}

// EndpointStatus is the result of probing a single endpoint.
type EndpointStatus struct {
	Address string
	Latency time.Duration
	Err     error
}

// Check probes every endpoint and reports each result.
func (s *LDAPService) Check(ctx context.Context) []EndpointStatus {
	statuses := make([]EndpointStatus, 0, len(s.endpoints))
	for _, endpoint := range s.endpoints {
		start := time.Now()
		err := s.ping(ctx, endpoint)
		statuses = append(statuses, EndpointStatus{
			Address: endpoint.Address,
			Latency: time.Since(start),
			Err:     err,
		})
	}
	return statuses
}

func (s *LDAPService) ping(ctx context.Context, endpoint Endpoint) error {
	session, err := s.client.Connect(ctx, endpoint, s.credential)
	if err != nil {
		return err
	}
	defer session.Close()

	return session.Ping(s.config.SearchBase)
}

func newErrorList() *multierror.Error {
	return &multierror.Error{
		ErrorFormat: func(errs []error) string {
			msgs := make([]string, 0, len(errs))
			for _, err := range errs {
				msgs = append(msgs, err.Error())
			}
			return strings.Join(msgs, "; ")
		},
	}
}

// exhausted turns the per-server failures into the final ConnectionError.
func exhausted(errs *multierror.Error) error {
	switch errs.Len() {
	case 0:
		return newError(KindConnection, "", nil, "no LDAP servers configured")
	case 1:
		return errs.Errors[0]
	}
	return newError(KindConnection, "", errs, "all LDAP servers failed")
}
