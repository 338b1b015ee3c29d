//go:build linux

package athena

import "golang.org/x/sys/unix"

// Linux suppresses SIGPIPE per call with the MSG_NOSIGNAL send flag, so
// there is no socket option to arm.

func checkSigpipeStrategy() error { return nil }

func setNoSigpipe(fd int) error { return nil }

// writeRaw writes to a connected socket without risking process
// termination when the peer is gone; a dead peer surfaces as EPIPE.
func writeRaw(fd int, p []byte) (int, error) {
	return unix.SendmsgN(fd, p, nil, nil, unix.MSG_NOSIGNAL)
}
