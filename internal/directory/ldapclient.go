package directory

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/sonroyaalmerol/appointment-dav/internal/cache"
	"github.com/sonroyaalmerol/appointment-dav/internal/config"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog"
)

var ErrUserNotFound = errors.New("user not found")

type Directory interface {
	Close()
	BindUser(ctx context.Context, username, password string) (*User, error)
	LookupUserByAttr(ctx context.Context, attr, value string) (*User, error)
}

type LDAPClient struct {
	cfg    config.LDAPConfig
	logger zerolog.Logger
	conn   *ldap.Conn
	users  *cache.Cache[string, *User]
}

func NewLDAPClient(cfg config.LDAPConfig, logger zerolog.Logger) (*LDAPClient, error) {
	l, err := dialLDAPAuto(cfg)
	if err != nil {
		logger.Error().Err(err).Str("url", cfg.URL).Msg("failed to dial LDAP")
		return nil, err
	}
	if cfg.BindDN != "" {
		if err := l.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
			logger.Error().Err(err).Str("bind_dn", cfg.BindDN).Msg("initial bind failed")
			l.Close()
			return nil, err
		}
	}
	return &LDAPClient{
		cfg:    cfg,
		logger: logger,
		conn:   l,
		users:  cache.New[string, *User](cfg.CacheTTL, cache.DefaultMaxEntries),
	}, nil
}

func (l *LDAPClient) Close() {
	if l.conn != nil {
		l.conn.Close()
	}
}

func (l *LDAPClient) BindUser(ctx context.Context, username, password string) (*User, error) {
	if password == "" {
		// an empty password is an unauthenticated bind and always succeeds
		return nil, errors.New("empty password")
	}
	searchReq := ldap.NewSearchRequest(
		l.cfg.UserBaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, int(l.cfg.Timeout.Seconds()), false,
		fmt.Sprintf(l.cfg.UserFilter, ldap.EscapeFilter(username), ldap.EscapeFilter(username)),
		userAttrList(l.cfg),
		nil,
	)
	res, err := l.conn.SearchWithPaging(searchReq, 1)
	if err != nil {
		l.logger.Error().Err(err).
			Str("user_base_dn", l.cfg.UserBaseDN).
			Str("username", username).
			Msg("LDAP search failed in BindUser")
		return nil, ErrUserNotFound
	}
	if len(res.Entries) == 0 {
		l.logger.Debug().Str("username", username).Msg("user not found in BindUser search")
		return nil, ErrUserNotFound
	}
	entry := res.Entries[0]

	userConn, err := dialLDAPAuto(l.cfg)
	if err != nil {
		l.logger.Error().Err(err).Msg("failed to dial LDAP for user bind")
		return nil, err
	}
	defer userConn.Close()
	if err := userConn.Bind(entry.DN, password); err != nil {
		l.logger.Debug().Err(err).Str("user_dn", entry.DN).Msg("user bind failed")
		return nil, err
	}

	return l.userFromEntry(entry), nil
}

func (l *LDAPClient) LookupUserByAttr(ctx context.Context, attr, value string) (*User, error) {
	attr = safeAttr(attr)
	key := attr + "=" + value
	if u, ok := l.users.Get(key); ok {
		return u, nil
	}
	searchReq := ldap.NewSearchRequest(
		l.cfg.UserBaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, int(l.cfg.Timeout.Seconds()), false,
		fmt.Sprintf("(%s=%s)", attr, ldap.EscapeFilter(value)),
		userAttrList(l.cfg),
		nil,
	)
	res, err := l.conn.Search(searchReq)
	if err != nil {
		l.logger.Error().Err(err).
			Str("attr", attr).
			Str("value", value).
			Str("user_base_dn", l.cfg.UserBaseDN).
			Msg("LDAP search failed in LookupUserByAttr")
		return nil, ErrUserNotFound
	}
	if len(res.Entries) == 0 {
		l.logger.Debug().Str("attr", attr).Str("value", value).Msg("user not found in LookupUserByAttr")
		return nil, ErrUserNotFound
	}
	u := l.userFromEntry(res.Entries[0])
	l.users.Put(key, u)
	return u, nil
}

func (l *LDAPClient) userFromEntry(e *ldap.Entry) *User {
	u := &User{
		UID:         firstNonEmpty(e.GetAttributeValue(l.cfg.UserAttr), e.GetAttributeValue("mail")),
		DN:          e.DN,
		DisplayName: firstNonEmpty(e.GetAttributeValue("displayName"), e.GetAttributeValue("cn")),
		Mail:        e.GetAttributeValue("mail"),
	}
	if l.cfg.AccountAttr != "" {
		u.Accounts = ParseAccounts(e.GetAttributeValues(l.cfg.AccountAttr))
	}
	return u
}

// ParseAccounts normalises account attribute values. Values may hold
// several comma separated ids. A "*" value grants every account and
// yields nil.
func ParseAccounts(values []string) []string {
	out := []string{}
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			id = strings.TrimSpace(id)
			if id == "*" {
				return nil
			}
			if id != "" && !slices.Contains(out, id) {
				out = append(out, id)
			}
		}
	}
	return out
}

func userAttrList(cfg config.LDAPConfig) []string {
	attrs := []string{"dn", "displayName", "mail", "uid", "cn"}
	for _, a := range []string{cfg.UserAttr, cfg.AccountAttr} {
		if a != "" && !slices.Contains(attrs, a) {
			attrs = append(attrs, a)
		}
	}
	return attrs
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func safeAttr(a string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return -1
	}, a)
}

func tlsConfigFor(cfg config.LDAPConfig, hostPort string) *tls.Config {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
	if host, _, err := net.SplitHostPort(hostPort); err == nil && host != "" {
		tlsConfig.ServerName = host
	} else {
		tlsConfig.ServerName = hostPort
	}
	return tlsConfig
}

func dialLDAPAuto(cfg config.LDAPConfig) (*ldap.Conn, error) {
	u := strings.TrimSpace(cfg.URL)
	if u == "" {
		return nil, errors.New("LDAP URL is empty")
	}

	lower := strings.ToLower(u)
	isLDAPS := strings.HasPrefix(lower, "ldaps://")
	isLDAP := strings.HasPrefix(lower, "ldap://")

	if !isLDAP && !isLDAPS {
		return nil, errors.New("URL must start with ldap:// or ldaps://")
	}

	if isLDAPS {
		return ldap.DialURL(u, ldap.DialWithTLSConfig(tlsConfigFor(cfg, u[len("ldaps://"):])))
	}

	conn, err := ldap.DialURL(u)
	if err != nil {
		return nil, err
	}

	if cfg.RequireTLS {
		if err := conn.StartTLS(tlsConfigFor(cfg, u[len("ldap://"):])); err != nil {
			conn.Close()
			return nil, fmt.Errorf("StartTLS failed: %w", err)
		}
	}

	return conn, nil
}
