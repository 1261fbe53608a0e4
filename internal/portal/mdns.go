package portal

import (
	"fmt"
	"sync"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type the setup page is announced under.
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain.
	ServiceDomain = "local."
)

// Advertiser announces the setup page on the local network.
type Advertiser interface {
	Advertise(port int) error
	Shutdown()
}

// ZeroconfAdvertiser registers the setup page as an mDNS service.
type ZeroconfAdvertiser struct {
	Instance string
	Text     []string

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewZeroconfAdvertiser creates an advertiser for the given instance name.
func NewZeroconfAdvertiser(instance string, text ...string) *ZeroconfAdvertiser {
	return &ZeroconfAdvertiser{Instance: instance, Text: text}
}

// Advertise starts responding to mDNS queries for the service on port.
func (a *ZeroconfAdvertiser) Advertise(port int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return nil
	}
	server, err := zeroconf.Register(a.Instance, ServiceType, ServiceDomain, port, a.Text, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	a.server = server
	return nil
}

// Shutdown withdraws the announcement.
func (a *ZeroconfAdvertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}
