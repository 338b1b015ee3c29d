//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package athena

import "golang.org/x/sys/unix"

// BSD-family kernels offer SO_NOSIGPIPE, armed once per socket; writes
// on a dead peer then fail with EPIPE instead of raising SIGPIPE.

func checkSigpipeStrategy() error { return nil }

func setNoSigpipe(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)
}

func writeRaw(fd int, p []byte) (int, error) {
	return unix.Write(fd, p)
}
