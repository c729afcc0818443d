package netquality

import (
	"context"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boonlink/bridge/internal/httputil"
)

// DefaultProbeInterval is how often the detector re-probes all endpoints.
const DefaultProbeInterval = 10 * time.Second

// DefaultProbeTimeout bounds a single endpoint probe.
const DefaultProbeTimeout = 5 * time.Second

// WeakLatencyThreshold: an average successful-probe latency above this
// downgrades an otherwise-healthy readout to WEAK.
const WeakLatencyThreshold = 2 * time.Second

// DefaultEndpoints returns the three endpoints probed when none are
// configured: a BSC RPC node (the rail this bridge actually depends on),
// BscScan (a secondary view of the same network), and a general
// connectivity check independent of BSC infrastructure.
func DefaultEndpoints() []string {
	return []string{
		"https://bsc-dataseed.binance.org/",
		"https://api.bscscan.com/api",
		"https://www.cloudflare.com/cdn-cgi/trace",
	}
}

// Detector probes a fixed endpoint set on an interval and classifies
// aggregate connectivity, notifying subscribers on every transition.
type Detector struct {
	endpoints    []string
	interval     time.Duration
	probeTimeout time.Duration
	client       *http.Client

	mu      sync.Mutex
	status  Status
	subs    map[int]chan Transition
	subSeq  int
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewDetector constructs a Detector. A nil or empty endpoints slice uses
// DefaultEndpoints; a zero interval or probeTimeout uses the package
// defaults.
func NewDetector(endpoints []string, interval, probeTimeout time.Duration) *Detector {
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints()
	}
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	return &Detector{
		endpoints:    endpoints,
		interval:     interval,
		probeTimeout: probeTimeout,
		client:       httputil.NewClient(probeTimeout),
		status:       Offline,
		subs:         make(map[int]chan Transition),
	}
}

// Start begins the probe loop. Calling Start twice is a no-op.
func (d *Detector) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.stopCh = make(chan struct{})
	d.mu.Unlock()

	log.Info().
		Int("endpoint_count", len(d.endpoints)).
		Dur("interval", d.interval).
		Msg("netquality.started")

	d.wg.Add(1)
	go d.loop(ctx)
}

// Stop halts the probe loop and waits for it to exit. Implements
// io.Closer's shape for registration with internal/lifecycle.Manager.
func (d *Detector) Stop() error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	d.started = false
	close(d.stopCh)
	d.mu.Unlock()

	d.wg.Wait()
	log.Info().Msg("netquality.stopped")
	return nil
}

func (d *Detector) loop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.probeAndPublish(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.probeAndPublish(ctx)
		}
	}
}

// Status returns the last-computed aggregate status.
func (d *Detector) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Subscribe registers for status-transition notifications. The returned
// channel is buffered; a slow subscriber drops transitions rather than
// blocking the probe loop. Call the returned unsubscribe func to stop
// receiving and release the channel.
func (d *Detector) Subscribe() (<-chan Transition, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.subSeq
	d.subSeq++
	ch := make(chan Transition, 8)
	d.subs[id] = ch

	unsub := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if c, ok := d.subs[id]; ok {
			delete(d.subs, id)
			close(c)
		}
	}
	return ch, unsub
}

func (d *Detector) probeAndPublish(ctx context.Context) {
	newStatus := d.probeAll(ctx)

	d.mu.Lock()
	oldStatus := d.status
	if newStatus == oldStatus {
		d.mu.Unlock()
		return
	}
	d.status = newStatus
	subs := make([]chan Transition, 0, len(d.subs))
	for _, ch := range d.subs {
		subs = append(subs, ch)
	}
	d.mu.Unlock()

	log.Info().
		Str("old_status", string(oldStatus)).
		Str("new_status", string(newStatus)).
		Msg("netquality.status_changed")

	transition := Transition{Old: oldStatus, New: newStatus}
	for _, ch := range subs {
		select {
		case ch <- transition:
		default:
		}
	}
}

// probeAll probes every endpoint and classifies the aggregate result.
func (d *Detector) probeAll(ctx context.Context) Status {
	type probeResult struct {
		ok      bool
		latency time.Duration
	}

	results := make([]probeResult, len(d.endpoints))
	var wg sync.WaitGroup
	for i, endpoint := range d.endpoints {
		wg.Add(1)
		go func(i int, endpoint string) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, d.probeTimeout)
			defer cancel()
			ok, latency := probeOne(probeCtx, d.client, endpoint)
			results[i] = probeResult{ok: ok, latency: latency}
		}(i, endpoint)
	}
	wg.Wait()

	successCount := 0
	var totalLatency time.Duration
	for _, r := range results {
		if r.ok {
			successCount++
			totalLatency += r.latency
		}
	}

	if successCount == 0 {
		return Offline
	}

	avgLatency := totalLatency / time.Duration(successCount)
	threshold := int(math.Ceil(float64(len(d.endpoints)) / 2))
	if successCount < threshold || avgLatency > WeakLatencyThreshold {
		return Weak
	}
	return Online
}

func probeOne(ctx context.Context, client *http.Client, endpoint string) (bool, time.Duration) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, 0
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return false, 0
	}
	defer resp.Body.Close()

	return resp.StatusCode < 500, latency
}
