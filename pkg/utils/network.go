// pkg/utils/network.go

package utils

import (
	"context"
	"net"
	"strconv"
	"time"
)

// PortReachable reports whether a TCP connection to host:port completes within timeout.
// The connection is closed immediately; nothing is sent.
func PortReachable(ctx context.Context, host string, port int, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
