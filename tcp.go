package athena

import (
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-metrics"
	"golang.org/x/sys/unix"
)

// TCP is the transport module establishing point-to-point tunnel links
// over TCP. It implements TransportModule.
type TCP struct {
	logger       *slog.Logger
	msink        metrics.MetricSink
	metricLabels []metrics.Label
	codec        PacketCodec
	registry     LinkRegistry
	backlog      int
}

var _ TransportModule = (*TCP)(nil)

// NewTCP builds the TCP transport module. A packet codec is mandatory;
// a link registry is only needed when listener links are opened. NewTCP
// fails on platforms where writes to a closed peer cannot be kept from
// killing the process.
func NewTCP(opts ...Option) (*TCP, error) {
	if err := checkSigpipeStrategy(); err != nil {
		return nil, err
	}

	cfg := config{backlog: defaultListenBacklog}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.codec == nil {
		return nil, fmt.Errorf("%w: a packet codec is required", ErrInvalidCfg)
	}

	t := &TCP{
		msink:        cfg.msink,
		metricLabels: cfg.metricLabels,
		codec:        cfg.codec,
		registry:     cfg.registry,
		backlog:      cfg.backlog,
	}
	if cfg.logHandler == nil {
		t.logger = slog.Default()
	} else {
		t.logger = slog.New(cfg.logHandler)
	}
	if cfg.msink == nil {
		t.msink = metrics.Default()
	}
	return t, nil
}

func (t *TCP) Name() string { return "TCP" }

// Open parses a connection descriptor and establishes either a listener
// link or an outbound peer link. Descriptor errors abort before any
// socket is created.
func (t *TCP) Open(descriptor string) (*Link, error) {
	spec, err := parseDescriptor(descriptor)
	if err != nil {
		t.logger.Error("rejecting connection descriptor",
			"descriptor", descriptor, LabelError.L(err))
		return nil, err
	}

	var link *Link
	if spec.listener {
		link, err = t.openListener(spec)
	} else {
		link, err = t.openConnection(spec)
	}
	if err != nil {
		return nil, err
	}

	if spec.forced != LocalityAuto {
		link.ForceLocal(spec.forced)
	}
	return link, nil
}

// Poll is a no-op for TCP: readiness is edge-driven through the event
// fd registered on each link.
func (t *TCP) Poll(_ *Link, _ time.Duration) int { return 0 }

// setSocketOptions arms the options every TCP socket carries:
// SO_REUSEADDR plus the platform's SIGPIPE suppression, when it is a
// set-once option.
func (t *TCP) setSocketOptions(fd int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("tcp: setsockopt SO_REUSEADDR: %w", err)
	}
	if err := setNoSigpipe(fd); err != nil {
		return fmt.Errorf("tcp: setsockopt SO_NOSIGPIPE: %w", err)
	}
	return nil
}

// setConnectLinkState wires a fully established endpoint into its peer
// link: private data, event fd for the poll loop, locality, and the
// initial send-ready event.
func (t *TCP) setConnectLinkState(link *Link, ep *endpoint) {
	link.SetPrivateData(ep)
	link.SetEventFd(ep.fd)
	link.SetLocal(ep.isLocalPair())
	link.SetEvent(EventSend)
}

func (t *TCP) incr(name []string, labels ...metrics.Label) {
	t.msink.IncrCounterWithLabels(name, 1.0, append(labels, t.metricLabels...))
}

func (t *TCP) add(name []string, val float32, labels ...metrics.Label) {
	t.msink.IncrCounterWithLabels(name, val, append(labels, t.metricLabels...))
}

// deriveLinkName formats the human-readable name of a link from its
// socket addresses: `tcp://local:port<->peer:port` for a connected link,
// `tcp://local:port` for a listener, `tcp://Unknown` when the local side
// is unusable.
func deriveLinkName(ep *endpoint) string {
	local := ep.localAddrPort()
	if !local.IsValid() {
		return "tcp://Unknown"
	}
	if !ep.hasPeer {
		return "tcp://" + hostPortString(local)
	}
	return "tcp://" + hostPortString(local) + "<->" + hostPortString(ep.peerAddrPort())
}

// hostPortString renders addr:port with the hostname reverse-resolved
// when a PTR record exists, numeric otherwise.
func hostPortString(ap netip.AddrPort) string {
	host := ap.Addr().String()
	if names, err := net.LookupAddr(host); err == nil && len(names) > 0 {
		host = strings.TrimSuffix(names[0], ".")
	}
	return net.JoinHostPort(host, strconv.Itoa(int(ap.Port())))
}
