package ready

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// WaitReachable blocks until a TCP connection can be opened to the host of
// every URL in targets, retrying each every interval. It returns the first
// unreachable target when ctx ends.
func WaitReachable(ctx context.Context, interval time.Duration, targets ...string) error {
	var d net.Dialer
	for _, target := range targets {
		addr, err := hostPort(target)
		if err != nil {
			return err
		}
		for {
			dialCtx, cancel := context.WithTimeout(ctx, interval)
			conn, err := d.DialContext(dialCtx, "tcp", addr)
			cancel()
			if err == nil {
				_ = conn.Close()
				break
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s unreachable: %w", addr, errors.Join(ctx.Err(), err))
			case <-time.After(interval):
			}
		}
	}
	return nil
}

func hostPort(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", target, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("parse %q: missing host", target)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
