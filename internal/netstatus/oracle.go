package netstatus

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"
)

// Oracle tracks connectivity through two independent signals: a passive
// online/offline flag fed by runtime events, and an active round-trip probe
// against a trivial backend endpoint.
//
// The passive flag is cheap but can lie (captive portals report online), so
// it only drives optimistic behaviour; only a successful probe authorises
// triggering a queue drain after a reconnect.
type Oracle struct {
	mu      sync.Mutex
	online  bool
	nextSub int
	subs    map[int]func(bool)

	probeURL string
	timeout  time.Duration
	client   *http.Client
}

func NewOracle(probeURL string, timeout time.Duration) *Oracle {
	return &Oracle{
		online:   true,
		subs:     make(map[int]func(bool)),
		probeURL: probeURL,
		timeout:  timeout,
		client:   &http.Client{},
	}
}

// IsOnlineFast returns the passive signal without any network traffic.
func (o *Oracle) IsOnlineFast() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.online
}

// SetOnline records a passive online/offline transition and notifies
// subscribers when the value actually changed.
func (o *Oracle) SetOnline(online bool) {
	o.mu.Lock()
	changed := o.online != online
	o.online = online
	var cbs []func(bool)
	if changed {
		cbs = make([]func(bool), 0, len(o.subs))
		for _, cb := range o.subs {
			cbs = append(cbs, cb)
		}
	}
	o.mu.Unlock()

	for _, cb := range cbs {
		cb(online)
	}
}

// OnNetworkChange registers a callback for passive transitions and returns
// an unsubscribe function.
func (o *Oracle) OnNetworkChange(cb func(online bool)) func() {
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = cb
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// CheckConnectivity performs the active probe: a GET against the probe
// endpoint with an explicit timeout and cancellation. The result also
// updates the passive flag. A non-positive timeout uses the default.
func (o *Oracle) CheckConnectivity(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = o.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ok := o.probe(ctx)
	o.SetOnline(ok)
	return ok
}

func (o *Oracle) probe(ctx context.Context) bool {
	if o.probeURL == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode < 400
}
