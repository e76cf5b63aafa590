package auth

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/sonroyaalmerol/appointment-dav/internal/config"
	"github.com/sonroyaalmerol/appointment-dav/internal/directory"

	"github.com/rs/zerolog"
)

var (
	ErrNoCredentials = errors.New("no credentials")
	ErrUnsupported   = errors.New("unsupported authorization scheme")
)

type Principal struct {
	UserID  string // uid or token subject
	UserDN  string
	Display string
	// Accounts the principal may open. nil grants every account, an empty
	// slice grants none.
	Accounts []string
}

// CanAccess reports whether p may read and write accountID. A nil principal
// is the anonymous caller of an unauthenticated deployment.
func (p *Principal) CanAccess(accountID string) bool {
	if p == nil || p.Accounts == nil {
		return true
	}
	return slices.Contains(p.Accounts, accountID)
}

type ctxKey int

const principalKey ctxKey = 1

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}

type Chain struct {
	cfg    *config.Config
	dir    directory.Directory
	logger zerolog.Logger
	basic  *BasicAuth
	bearer *BearerAuth
}

func NewChain(cfg *config.Config, dir directory.Directory, logger zerolog.Logger) *Chain {
	c := &Chain{
		cfg:    cfg,
		dir:    dir,
		logger: logger,
	}
	if cfg.Auth.BasicEnabled() && dir != nil {
		c.basic = NewBasicAuth(dir, cfg.LDAP.CacheTTL, logger)
	}
	if cfg.Auth.BearerEnabled() {
		c.bearer = NewBearerAuth(cfg, dir, logger)
	}
	return c
}

func (c *Chain) Enabled() bool       { return c.basic != nil || c.bearer != nil }
func (c *Chain) BasicEnabled() bool  { return c.basic != nil }
func (c *Chain) BearerEnabled() bool { return c.bearer != nil }

// Challenge is the WWW-Authenticate value sent with 401 responses.
func (c *Chain) Challenge() string {
	if c.basic != nil {
		return `Basic realm="appointment-dav", charset="UTF-8"`
	}
	return `Bearer realm="appointment-dav"`
}

// Authenticate dispatches an Authorization header to the matching scheme.
func (c *Chain) Authenticate(ctx context.Context, header string) (*Principal, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, ErrNoCredentials
	}
	scheme, rest, _ := strings.Cut(header, " ")
	switch strings.ToLower(scheme) {
	case "basic":
		if c.basic == nil {
			return nil, ErrUnsupported
		}
		return c.basic.Authenticate(ctx, header)
	case "bearer":
		if c.bearer == nil {
			return nil, ErrUnsupported
		}
		return c.bearer.Authenticate(ctx, strings.TrimSpace(rest))
	}
	return nil, ErrUnsupported
}
