// Package source reads inventory and playbook documents from the local
// filesystem or from a remote host over SFTP.
//
// A location is either a plain filesystem path or an sftp URL:
//
//	inventories/dev/hosts.ini
//	sftp://deploy@bastion.example.com:2222/etc/ansible/hosts?key=/home/me/.ssh/id_ed25519
package source

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/eniac111/plumbinv/internal/ssh"
)

// Reader loads the raw bytes behind a location.
type Reader interface {
	ReadFile(ctx context.Context, location string) ([]byte, error)
}

// Local reads from the local filesystem.
type Local struct{}

// ReadFile implements Reader.
func (Local) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Location is a parsed source location.
type Location struct {
	// Remote is false for local paths.
	Remote bool
	Target ssh.Target
	Path   string
}

// ParseLocation splits a location string into a local path or an SFTP
// target and remote path.
func ParseLocation(s string) (Location, error) {
	if !strings.HasPrefix(s, "sftp://") {
		return Location{Path: strings.TrimPrefix(s, "file://")}, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return Location{}, fmt.Errorf("parse location %q: %w", s, err)
	}
	if u.Hostname() == "" {
		return Location{}, fmt.Errorf("location %q has no host", s)
	}
	if u.Path == "" || u.Path == "/" {
		return Location{}, fmt.Errorf("location %q has no path", s)
	}

	t := ssh.Target{Host: u.Hostname()}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return Location{}, fmt.Errorf("location %q: invalid port %q", s, p)
		}
		t.Port = port
	}
	if u.User != nil {
		t.User = u.User.Username()
		t.Password, _ = u.User.Password()
	}
	q := u.Query()
	t.KeyPath = q.Get("key")
	t.KnownHostsPath = q.Get("known_hosts")
	t.InsecureIgnoreHostKey = q.Get("insecure") == "true"

	return Location{Remote: true, Target: t, Path: u.Path}, nil
}
