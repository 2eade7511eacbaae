//go:build unix && !linux

package transport

import (
	"net"
)

// peerCredentials is unavailable off Linux; accessors report zero values.
func peerCredentials(*net.UnixConn) (Credentials, error) {
	return Credentials{}, ErrCredentialsUnsupported
}
