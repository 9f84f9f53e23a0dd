package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// Endpoint describes where the running service accepts control connections.
type Endpoint struct {
	Network string
	Address string
}

// UnixEndpoint returns an endpoint for the socket at path.
func UnixEndpoint(path string) Endpoint {
	return Endpoint{Network: "unix", Address: path}
}

// Listen binds to the configured endpoint. A stale socket left behind by a
// previous run is removed first; a live one is reported as in use.
func (e Endpoint) Listen() (net.Listener, error) {
	if e.Network != "unix" {
		return net.Listen(e.Network, e.Address)
	}

	if err := os.MkdirAll(filepath.Dir(e.Address), 0o700); err != nil {
		return nil, fmt.Errorf("ensure socket directory: %w", err)
	}
	if _, err := os.Stat(e.Address); err == nil {
		conn, dialErr := net.DialTimeout(e.Network, e.Address, time.Second)
		if dialErr == nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s is already in use", e.Address)
		}
		if err := os.Remove(e.Address); err != nil {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat socket: %w", err)
	}

	listener, err := net.Listen(e.Network, e.Address)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(e.Address, 0o600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}
	return listener, nil
}

// DialContext establishes a client connection with sensible timeouts.
func (e Endpoint) DialContext(ctx context.Context) (net.Conn, error) {
	d := &net.Dialer{Timeout: 5 * time.Second}
	return d.DialContext(ctx, e.Network, e.Address)
}

// String provides a readable representation for logs.
func (e Endpoint) String() string {
	return fmt.Sprintf("%s://%s", e.Network, e.Address)
}
