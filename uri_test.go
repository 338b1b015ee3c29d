package athena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDescriptor(t *testing.T) {
	t.Run("plain connection", func(t *testing.T) {
		spec, err := parseDescriptor("tcp://127.0.0.1:9695")
		require.NoError(t, err)
		require.False(t, spec.listener)
		require.Equal(t, "127.0.0.1", spec.addr.String())
		require.Equal(t, uint16(9695), spec.port)
		require.Empty(t, spec.name)
		require.Equal(t, LocalityAuto, spec.forced)
	})

	t.Run("listener flag", func(t *testing.T) {
		spec, err := parseDescriptor("tcp://127.0.0.1:9695/listener")
		require.NoError(t, err)
		require.True(t, spec.listener)
	})

	t.Run("flags are case-insensitive and order-free", func(t *testing.T) {
		spec, err := parseDescriptor("tcp://127.0.0.1:9695/name%3Dtunnel0/Listener")
		require.NoError(t, err)
		require.True(t, spec.listener)
		require.Equal(t, "tunnel0", spec.name)
	})

	t.Run("forced locality", func(t *testing.T) {
		spec, err := parseDescriptor("tcp://127.0.0.1:9695/local%3Dtrue")
		require.NoError(t, err)
		require.Equal(t, ForcedLocal, spec.forced)

		spec, err = parseDescriptor("tcp://127.0.0.1:9695/local%3DFALSE")
		require.NoError(t, err)
		require.Equal(t, ForcedNonLocal, spec.forced)
	})

	t.Run("unknown flag is rejected", func(t *testing.T) {
		_, err := parseDescriptor("tcp://127.0.0.1:9695/bogus")
		require.ErrorIs(t, err, ErrInvalidDescriptor)
	})

	t.Run("malformed name flag is rejected", func(t *testing.T) {
		_, err := parseDescriptor("tcp://127.0.0.1:9695/name%3D")
		require.ErrorIs(t, err, ErrInvalidDescriptor)
	})

	t.Run("malformed local flag is rejected", func(t *testing.T) {
		_, err := parseDescriptor("tcp://127.0.0.1:9695/local%3Dmaybe")
		require.ErrorIs(t, err, ErrInvalidDescriptor)
	})

	t.Run("missing port is rejected", func(t *testing.T) {
		_, err := parseDescriptor("tcp://127.0.0.1")
		require.ErrorIs(t, err, ErrInvalidDescriptor)
	})

	t.Run("wrong scheme is rejected", func(t *testing.T) {
		_, err := parseDescriptor("udp://127.0.0.1:9695")
		require.ErrorIs(t, err, ErrInvalidDescriptor)
	})

	t.Run("unresolvable host is rejected", func(t *testing.T) {
		_, err := parseDescriptor("tcp://host.invalid:9695")
		require.ErrorIs(t, err, ErrHostResolve)
	})

	t.Run("localhost resolves to IPv4", func(t *testing.T) {
		spec, err := parseDescriptor("tcp://localhost:9695")
		require.NoError(t, err)
		require.True(t, spec.addr.Is4())
	})
}
