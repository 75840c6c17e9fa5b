package oscquery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/c360/facebridge/errors"
)

const (
	// oscjsonService is the DNS-SD service type OSCQuery hosts announce.
	oscjsonService = "_oscjson._tcp"
	oscjsonDomain  = "local."

	// stepInterval rates how often Step drains resolve events.
	stepInterval = 5 * time.Second

	// settleDelay is how long the consumer needs after announcing an
	// avatar before its /avatar document is consistent.
	settleDelay = 250 * time.Millisecond
)

// Client browses for the consumer's OSCQuery service and fetches the
// avatar schema from it.
type Client struct {
	instancePrefix string
	logger         *slog.Logger
	httpc          *http.Client

	entries chan *zeroconf.ServiceEntry
	cancel  context.CancelFunc

	mu       sync.Mutex
	endpoint string // http://host:port, empty until resolved
	nextRun  time.Time
}

// NewClient creates a client that accepts service instances whose name
// starts with instancePrefix.
func NewClient(instancePrefix string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		instancePrefix: instancePrefix,
		logger:         logger,
		httpc:          &http.Client{Timeout: 5 * time.Second},
		entries:        make(chan *zeroconf.ServiceEntry, 16),
	}
}

// Start begins the mDNS browse. It returns once the browse is running;
// resolve events arrive asynchronously and are drained by Step.
func (c *Client) Start(ctx context.Context) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return errors.WrapTransient(err, "oscquery", "Start", "mdns resolver")
	}

	browseCtx, cancel := context.WithCancel(ctx)
	if err := resolver.Browse(browseCtx, oscjsonService, oscjsonDomain, c.entries); err != nil {
		cancel()
		return errors.WrapTransient(err, "oscquery", "Start", "mdns browse")
	}
	c.cancel = cancel

	return nil
}

// Stop ends the mDNS browse.
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Step drains pending resolve events, at most once per five seconds.
// It returns true when a service endpoint was resolved for the first
// time, which is the gateway's cue to run schema discovery.
func (c *Client) Step() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.nextRun) {
		return false
	}
	c.nextRun = time.Now().Add(stepInterval)

	first := false
	for {
		select {
		case entry := <-c.entries:
			if entry == nil || !strings.HasPrefix(entry.Instance, c.instancePrefix) {
				continue
			}
			if len(entry.AddrIPv4) == 0 {
				continue
			}
			endpoint := fmt.Sprintf("http://%s:%d", entry.AddrIPv4[0], entry.Port)
			c.logger.Info("resolved oscquery service",
				"instance", entry.Instance, "endpoint", endpoint)
			if c.endpoint == "" {
				first = true
			}
			c.endpoint = endpoint
		default:
			return first
		}
	}
}

// Endpoint returns the resolved service endpoint, or empty when none
// has been found yet.
func (c *Client) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

// Avatar fetches and decodes the /avatar schema document. It waits the
// settle delay first so a just-announced avatar reports its final
// parameter set.
func (c *Client) Avatar(ctx context.Context) (*Node, error) {
	endpoint := c.Endpoint()
	if endpoint == "" {
		return nil, errors.WrapTransient(errors.ErrNoSchemaSource, "oscquery", "Avatar", "service lookup")
	}

	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/avatar", nil)
	if err != nil {
		return nil, errors.WrapInvalid(err, "oscquery", "Avatar", "request build")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.WrapTransient(err, "oscquery", "Avatar", "schema fetch")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.WrapTransient(
			fmt.Errorf("unexpected status %d", resp.StatusCode),
			"oscquery", "Avatar", "schema fetch")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapTransient(err, "oscquery", "Avatar", "schema read")
	}

	var root Node
	if err := json.Unmarshal(body, &root); err != nil {
		c.logger.Warn("malformed avatar schema", "error", err)
		return nil, errors.WrapInvalid(errors.ErrParsingFailed, "oscquery", "Avatar", "schema decode")
	}

	return &root, nil
}

// SetEndpoint overrides the resolved endpoint. Intended for tests and
// for configurations that pin the consumer address.
func (c *Client) SetEndpoint(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoint = endpoint
}
