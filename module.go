package athena

import (
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// TransportModule is one link technology exposed to the node. A module
// turns connection descriptors of its scheme into links and, if it uses
// level-triggered readiness, drains pending work in Poll.
type TransportModule interface {
	// Name is the descriptor scheme the module answers to, e.g. "tcp".
	Name() string

	// Open parses a connection descriptor and returns an established
	// link. Configuration errors abort before any socket is created.
	Open(descriptor string) (*Link, error)

	// Poll gives the module a chance to surface readiness not visible
	// through the link's event fd; it returns the number of events
	// raised. Edge-driven modules return 0.
	Poll(link *Link, timeout time.Duration) int
}

// moduleRegistry holds the transport modules available to this process.
// It is populated once at process start via RegisterModule.
var moduleRegistry = xsync.NewMapOf[string, TransportModule]()

// RegisterModule adds a transport module to the process registry.
// Registering the same scheme twice is an error.
func RegisterModule(m TransportModule) error {
	name := strings.ToLower(m.Name())
	if _, loaded := moduleRegistry.LoadOrStore(name, m); loaded {
		return ErrModuleRegistered
	}
	return nil
}

// LookupModule returns the module registered for a scheme.
func LookupModule(scheme string) (TransportModule, error) {
	m, ok := moduleRegistry.Load(strings.ToLower(scheme))
	if !ok {
		return nil, ErrUnknownModule
	}
	return m, nil
}

// Open routes a connection descriptor to the module owning its scheme.
func Open(descriptor string) (*Link, error) {
	scheme, _, found := strings.Cut(descriptor, "://")
	if !found {
		return nil, ErrInvalidDescriptor
	}
	m, err := LookupModule(scheme)
	if err != nil {
		return nil, err
	}
	return m.Open(descriptor)
}
