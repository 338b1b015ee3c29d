//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package athena

// Platforms without SO_NOSIGPIPE or MSG_NOSIGNAL cannot safely write to
// a closed peer; module construction fails instead of risking process
// termination at runtime.

func checkSigpipeStrategy() error { return ErrPlatformSupport }

func setNoSigpipe(fd int) error { return ErrPlatformSupport }

func writeRaw(fd int, p []byte) (int, error) { return 0, ErrPlatformSupport }
