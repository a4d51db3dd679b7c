//go:build !windows

package ipc

import (
	"context"
	"net"
)

func listen(path string) (net.Listener, error) {
	return net.Listen("unix", path)
}

func dial(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}
