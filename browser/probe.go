package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultReadyInterval = 500 * time.Millisecond
	handshakeTimeout     = 2 * time.Second
)

// WaitReady dials BrowserAddress until the websocket handshake succeeds or ctx ends.
func (l *Launcher) WaitReady(ctx context.Context) error {
	addr := l.BrowserAddress()
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ticker := time.NewTicker(l.readyInterval)
	defer ticker.Stop()

	var lastErr error
	for attempt := 1; ; attempt++ {
		conn, resp, err := dialer.DialContext(ctx, addr, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err == nil {
			l.logger.DebugContext(ctx, "browser endpoint ready", slog.Int("attempts", attempt))
			return conn.Close()
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return fmt.Errorf("browser: endpoint not ready after %d attempts: %w", attempt, errors.Join(ctx.Err(), lastErr))
		case <-ticker.C:
		}
	}
}
