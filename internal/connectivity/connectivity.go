// Package connectivity answers whether the device can currently reach the
// internet.
package connectivity

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kimhsiao/splitledger/client/internal/logging"
)

// Status is a connectivity snapshot.
type Status struct {
	Connected         bool `json:"connected"`
	InternetReachable bool `json:"internetReachable"`
}

// Ready reports whether a drain may be attempted.
func (s Status) Ready() bool {
	return s.Connected && s.InternetReachable
}

// Oracle reports the current connectivity.
type Oracle interface {
	Check(ctx context.Context) (Status, error)
}

// Func adapts a function to an Oracle.
type Func func(ctx context.Context) (Status, error)

// Check calls f.
func (f Func) Check(ctx context.Context) (Status, error) {
	return f(ctx)
}

// Static is an Oracle with a fixed, settable answer. It backs the --offline
// flag and tests.
type Static struct {
	mu     sync.RWMutex
	status Status
}

// NewStatic returns a Static oracle reporting online or fully offline.
func NewStatic(online bool) *Static {
	return &Static{status: Status{Connected: online, InternetReachable: online}}
}

// Set replaces the reported status.
func (s *Static) Set(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Check returns the current status.
func (s *Static) Check(ctx context.Context) (Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, nil
}

// DefaultProbeTimeout bounds a single reachability probe.
const DefaultProbeTimeout = 5 * time.Second

// HTTPProbe derives Connected from the host's network interfaces and
// InternetReachable from a HEAD request to a probe URL.
type HTTPProbe struct {
	url        string
	httpClient *http.Client
	linkUp     func() (bool, error)
}

// ProbeOption configures an HTTPProbe.
type ProbeOption func(*HTTPProbe)

// WithHTTPClient overrides the client used for the probe request.
func WithHTTPClient(c *http.Client) ProbeOption {
	return func(p *HTTPProbe) { p.httpClient = c }
}

// WithLinkCheck overrides the interface check.
func WithLinkCheck(fn func() (bool, error)) ProbeOption {
	return func(p *HTTPProbe) { p.linkUp = fn }
}

// NewHTTPProbe creates a probe against url. A zero timeout uses DefaultProbeTimeout.
func NewHTTPProbe(url string, timeout time.Duration, opts ...ProbeOption) *HTTPProbe {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	p := &HTTPProbe{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		linkUp:     hasActiveInterface,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check reports the current status. Probe failures are reported as an
// unreachable internet, not as errors.
func (p *HTTPProbe) Check(ctx context.Context) (Status, error) {
	up, err := p.linkUp()
	if err != nil {
		return Status{}, err
	}
	if !up {
		return Status{}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return Status{Connected: true}, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		logging.Debug("Reachability probe failed", map[string]interface{}{"url": p.url, "error": err.Error()})
		return Status{Connected: true}, nil
	}
	resp.Body.Close()

	// Any answer from a server proves the route; only gateway errors from a
	// captive proxy count as unreachable.
	reachable := resp.StatusCode < http.StatusBadGateway
	return Status{Connected: true, InternetReachable: reachable}, nil
}

// hasActiveInterface reports whether any non-loopback interface is up.
func hasActiveInterface() (bool, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 {
			return true, nil
		}
	}
	return false, nil
}
