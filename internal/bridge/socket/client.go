package socket

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ArcheWizard/Password-Manager/internal/bridge/rpc"
	"github.com/ArcheWizard/Password-Manager/pkg/framex"
)

// Client performs request/response exchanges against a bridge domain
// socket. One connection per call; the server closes it after responding.
type Client struct {
	Path    string
	Timeout time.Duration
}

// Do sends a request and waits for the framed response.
func (c *Client) Do(ctx context.Context, req rpc.Request) (rpc.Response, error) {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "unix", c.Path)
	if err != nil {
		return rpc.Response{}, fmt.Errorf("failed to connect to bridge socket: %w", err)
	}
	defer conn.Close()

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = readTimeout
	}
	if deadline, ok := ctx.Deadline(); ok && deadline.Before(time.Now().Add(timeout)) {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	if err := framex.WriteMessage(conn, req); err != nil {
		return rpc.Response{}, fmt.Errorf("failed to send request: %w", err)
	}

	var resp rpc.Response
	if err := framex.ReadMessage(conn, &resp); err != nil {
		return rpc.Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, nil
}
