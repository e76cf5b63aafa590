package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sonroyaalmerol/appointment-dav/internal/cache"
	"github.com/sonroyaalmerol/appointment-dav/internal/config"
	"github.com/sonroyaalmerol/appointment-dav/internal/directory"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"
)

type BearerAuth struct {
	cfg    *config.Config
	Dir    directory.Directory
	Logger zerolog.Logger

	mu     sync.Mutex
	keyset jwk.Set
	ksAt   time.Time
	ksTTL  time.Duration

	verCache *cache.Cache[string, *Principal]
}

func NewBearerAuth(cfg *config.Config, dir directory.Directory, logger zerolog.Logger) *BearerAuth {
	return &BearerAuth{
		cfg:      cfg,
		Dir:      dir,
		Logger:   logger,
		ksTTL:    10 * time.Minute,
		verCache: cache.New[string, *Principal](2*time.Minute, cache.DefaultMaxEntries),
	}
}

func (b *BearerAuth) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrNoCredentials
	}
	if p, ok := b.verCache.Get(token); ok && p != nil {
		return p, nil
	}

	opts := []jwt.ParseOption{jwt.WithValidate(true)}
	switch {
	case b.cfg.Auth.HMACSecret != "":
		opts = append(opts, jwt.WithKey(jwa.HS256, []byte(b.cfg.Auth.HMACSecret)))
	case b.cfg.Auth.JWKSURL != "":
		set, err := b.keySet(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, jwt.WithKeySet(set))
	default:
		return nil, errors.New("no jwt validation configured")
	}
	if b.cfg.Auth.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(b.cfg.Auth.Issuer))
	}
	if b.cfg.Auth.Audience != "" {
		opts = append(opts, jwt.WithAudience(b.cfg.Auth.Audience))
	}

	tok, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return nil, fmt.Errorf("bearer rejected: %w", err)
	}
	sub := tok.Subject()
	if sub == "" {
		return nil, errors.New("no sub")
	}

	p := &Principal{UserID: sub, Display: sub}
	if name, ok := tok.Get("name"); ok {
		if s, ok := name.(string); ok && s != "" {
			p.Display = s
		}
	}
	if raw, ok := tok.Get(b.cfg.Auth.AccountClaim); ok {
		p.Accounts = accountsFromClaim(raw)
	} else if b.Dir != nil {
		// Map token subject to LDAP user
		user, err := b.Dir.LookupUserByAttr(ctx, b.cfg.LDAP.UserAttr, sub)
		if err != nil {
			return nil, err
		}
		p.UserID, p.UserDN, p.Display, p.Accounts = user.UID, user.DN, user.DisplayName, user.Accounts
	} else {
		p.Accounts = []string{}
	}

	// never outlive the token itself
	b.verCache.Set(token, p, tok.Expiration())
	return p, nil
}

func (b *BearerAuth) keySet(ctx context.Context) (jwk.Set, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.keyset != nil && time.Since(b.ksAt) <= b.ksTTL {
		return b.keyset, nil
	}
	set, err := jwk.Fetch(ctx, b.cfg.Auth.JWKSURL)
	if err != nil {
		b.Logger.Error().Err(err).Str("jwks_url", b.cfg.Auth.JWKSURL).Msg("failed to fetch JWKS")
		return nil, err
	}
	b.keyset = set
	b.ksAt = time.Now()
	return set, nil
}

// accountsFromClaim reads a string or string-array claim. "*" grants every
// account.
func accountsFromClaim(raw any) []string {
	var values []string
	switch v := raw.(type) {
	case string:
		values = strings.Split(v, ",")
	case []string:
		values = v
	case []any:
		for _, x := range v {
			if s, ok := x.(string); ok {
				values = append(values, s)
			}
		}
	}
	return directory.ParseAccounts(values)
}
