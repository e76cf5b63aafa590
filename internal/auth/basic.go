package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/sonroyaalmerol/appointment-dav/internal/cache"
	"github.com/sonroyaalmerol/appointment-dav/internal/directory"

	"github.com/rs/zerolog"
)

type BasicAuth struct {
	Dir    directory.Directory
	Logger zerolog.Logger

	ttl   time.Duration
	cache *cache.Cache[string, *Principal]
}

func NewBasicAuth(dir directory.Directory, ttl time.Duration, logger zerolog.Logger) *BasicAuth {
	return &BasicAuth{
		Dir:    dir,
		Logger: logger,
		ttl:    ttl,
		cache:  cache.New[string, *Principal](ttl, cache.DefaultMaxEntries),
	}
}

func (b *BasicAuth) Authenticate(ctx context.Context, header string) (*Principal, error) {
	// header may be empty; browser will prompt; handle both cases
	if header == "" {
		return nil, ErrNoCredentials
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "basic" {
		return nil, errors.New("not basic")
	}
	dec, err := base64.StdEncoding.DecodeString(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}
	creds := strings.SplitN(string(dec), ":", 2)
	if len(creds) != 2 {
		return nil, errors.New("malformed basic")
	}
	username, password := creds[0], creds[1]

	// successful binds are cached under a digest so the password never
	// sits in memory in clear text
	sum := sha256.Sum256(dec)
	key := hex.EncodeToString(sum[:])
	if b.ttl > 0 {
		if p, ok := b.cache.Get(key); ok {
			return p, nil
		}
	}

	user, err := b.Dir.BindUser(ctx, username, password)
	if err != nil {
		b.Logger.Debug().Err(err).Str("username", username).Msg("basic auth rejected")
		return nil, err
	}
	p := &Principal{
		UserID:   user.UID,
		UserDN:   user.DN,
		Display:  user.DisplayName,
		Accounts: user.Accounts,
	}
	if b.ttl > 0 {
		b.cache.Put(key, p)
	}
	return p, nil
}
