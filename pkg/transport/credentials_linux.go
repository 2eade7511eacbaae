//go:build linux

package transport

import (
	"net"

	"golang.org/x/sys/unix"
)

// peerCredentials reads SO_PEERCRED from uc.
func peerCredentials(uc *net.UnixConn) (Credentials, error) {
	raw, err := uc.SyscallConn()
	if err != nil {
		return Credentials{}, err
	}

	var (
		cred    *unix.Ucred
		credErr error
	)
	if err := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return Credentials{}, err
	}
	if credErr != nil {
		return Credentials{}, credErr
	}

	c := Credentials{
		PID:  cred.Pid,
		EUID: cred.Uid,
		EGID: cred.Gid,
	}
	if sid, err := unix.Getsid(int(cred.Pid)); err == nil {
		c.AuditSessionID = int32(sid)
	}
	return c, nil
}
