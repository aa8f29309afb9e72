package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pkg/sftp"
	gossh "golang.org/x/crypto/ssh"

	"github.com/eniac111/plumbinv/internal/ssh"
)

// SFTP reads files from one remote host.
type SFTP struct {
	client *sftp.Client
	conn   *gossh.Client
}

// NewSFTP wraps an established SFTP client.
func NewSFTP(client *sftp.Client) *SFTP {
	return &SFTP{client: client}
}

// DialSFTP connects to t and opens an SFTP subsystem on the connection.
func DialSFTP(ctx context.Context, t ssh.Target, logger *slog.Logger) (*SFTP, error) {
	conn, err := ssh.Connect(ctx, t, logger)
	if err != nil {
		return nil, err
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("start sftp on %s: %w", t.Addr(), err)
	}
	return &SFTP{client: client, conn: conn}, nil
}

// ReadFile implements Reader for paths on the remote host.
func (s *SFTP) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.client.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sftp open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("sftp read %s: %w", path, err)
	}
	return data, nil
}

// Close ends the SFTP session and the underlying SSH connection.
func (s *SFTP) Close() error {
	err := s.client.Close()
	if s.conn != nil {
		if cerr := s.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
