package ssh

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultPort is used when a Target leaves Port unset.
const DefaultPort = 22

// Target describes the remote end of an SSH connection.
type Target struct {
	Host     string
	Port     int
	User     string
	Password string
	KeyPath  string // Optional SSH key path

	// KnownHostsPath overrides ~/.ssh/known_hosts.
	KnownHostsPath string
	// InsecureIgnoreHostKey disables host key verification.
	InsecureIgnoreHostKey bool
}

// Addr returns host:port, falling back to DefaultPort.
func (t Target) Addr() string {
	port := t.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

// Key identifies a target for connection reuse.
func (t Target) Key() string {
	return t.User + "@" + t.Addr()
}

// Connect opens an SSH connection using user/password or user/key auth.
func Connect(ctx context.Context, t Target, logger *slog.Logger) (*ssh.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	authMethods, err := authMethods(t, logger)
	if err != nil {
		return nil, err
	}
	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no authentication methods available")
	}

	hostKeyCallback, err := hostKeyCallback(t)
	if err != nil {
		return nil, err
	}

	username := t.User
	if username == "" {
		if usr, err := user.Current(); err == nil {
			username = usr.Username
		}
	}

	config := &ssh.ClientConfig{
		User:            username,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
	}

	addr := t.Addr()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SSH: %w", err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to establish SSH session with %s: %w", addr, err)
	}
	logger.Debug("SSH connection established.", "addr", addr, "user", username)
	return ssh.NewClient(c, chans, reqs), nil
}

func authMethods(t Target, logger *slog.Logger) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if t.Password != "" {
		methods = append(methods, ssh.Password(t.Password))
	}

	if t.KeyPath != "" {
		key, err := os.ReadFile(t.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SSH key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	// Fall back to the default key when no key path is provided.
	if t.KeyPath == "" {
		if signer, path, err := defaultSigner(); err == nil {
			methods = append(methods, ssh.PublicKeys(signer))
			logger.Debug("Using default SSH key.", "path", path)
		} else {
			logger.Debug("Default SSH key unavailable.", "error", err)
		}
	}

	if sshAgent, err := net.Dial("unix", os.Getenv("SSH_AUTH_SOCK")); err == nil {
		methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(sshAgent).Signers))
		logger.Debug("Using SSH agent.")
	} else {
		logger.Debug("SSH agent unavailable.", "error", err)
	}

	return methods, nil
}

func defaultSigner() (ssh.Signer, string, error) {
	usr, err := user.Current()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get current user: %w", err)
	}
	for _, name := range []string{"id_ed25519", "id_rsa"} {
		path := filepath.Join(usr.HomeDir, ".ssh", name)
		key, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, path, fmt.Errorf("failed to parse default SSH key %s: %w", path, err)
		}
		return signer, path, nil
	}
	return nil, "", fmt.Errorf("no default SSH key in %s", filepath.Join(usr.HomeDir, ".ssh"))
}

func hostKeyCallback(t Target) (ssh.HostKeyCallback, error) {
	if t.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	path := t.KnownHostsPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("home dir: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("load known hosts %s: %w", path, err)
	}
	return cb, nil
}
