package source

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/eniac111/plumbinv/internal/ssh"
)

// DialFunc opens a remote reader for a target.
type DialFunc func(ctx context.Context, t ssh.Target) (*SFTP, error)

// Resolver dispatches locations to the local filesystem or to SFTP
// sessions. Sessions are opened on first use and reused per target until
// Close. Concurrent reads of one target share a single dial, and a slow
// dial does not hold up reads from other targets.
type Resolver struct {
	local Reader
	dial  DialFunc
	group singleflight.Group

	mu      sync.Mutex
	remotes map[string]*SFTP
}

// NewResolver returns a Resolver that dials remote targets with dial. A nil
// dial uses DialSFTP with logger.
func NewResolver(dial DialFunc, logger *slog.Logger) *Resolver {
	if dial == nil {
		dial = func(ctx context.Context, t ssh.Target) (*SFTP, error) {
			return DialSFTP(ctx, t, logger)
		}
	}
	return &Resolver{
		local:   Local{},
		dial:    dial,
		remotes: make(map[string]*SFTP),
	}
}

// ReadFile implements Reader.
func (r *Resolver) ReadFile(ctx context.Context, location string) ([]byte, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	if !loc.Remote {
		return r.local.ReadFile(ctx, loc.Path)
	}
	remote, err := r.remote(ctx, loc.Target)
	if err != nil {
		return nil, err
	}
	return remote.ReadFile(ctx, loc.Path)
}

func (r *Resolver) remote(ctx context.Context, t ssh.Target) (*SFTP, error) {
	key := t.Key()
	if s, ok := r.cached(key); ok {
		return s, nil
	}
	v, err, _ := r.group.Do(key, func() (any, error) {
		if s, ok := r.cached(key); ok {
			return s, nil
		}
		s, err := r.dial(ctx, t)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.remotes[key] = s
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*SFTP), nil
}

func (r *Resolver) cached(key string) (*SFTP, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.remotes[key]
	return s, ok
}

// Close closes every remote session opened so far.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for key, s := range r.remotes {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.remotes, key)
	}
	return errors.Join(errs...)
}
