package netstatus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOnlineFast_Default(t *testing.T) {
	o := NewOracle("http://example.invalid/ping", time.Second)
	assert.True(t, o.IsOnlineFast())
}

func TestSetOnline_NotifiesOnChange(t *testing.T) {
	o := NewOracle("http://example.invalid/ping", time.Second)

	var events []bool
	unsubscribe := o.OnNetworkChange(func(online bool) {
		events = append(events, online)
	})
	defer unsubscribe()

	o.SetOnline(false)
	o.SetOnline(false) // no transition, no event
	o.SetOnline(true)

	assert.Equal(t, []bool{false, true}, events)
	assert.True(t, o.IsOnlineFast())
}

func TestOnNetworkChange_Unsubscribe(t *testing.T) {
	o := NewOracle("http://example.invalid/ping", time.Second)

	called := 0
	unsubscribe := o.OnNetworkChange(func(bool) { called++ })

	o.SetOnline(false)
	unsubscribe()
	o.SetOnline(true)

	assert.Equal(t, 1, called)
}

func TestCheckConnectivity_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	o := NewOracle(server.URL, time.Second)
	o.SetOnline(false)

	require.True(t, o.CheckConnectivity(context.Background(), 0))
	assert.True(t, o.IsOnlineFast())
}

func TestCheckConnectivity_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	o := NewOracle(server.URL, time.Second)

	require.False(t, o.CheckConnectivity(context.Background(), 0))
	assert.False(t, o.IsOnlineFast())
}

func TestCheckConnectivity_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	o := NewOracle(server.URL, time.Second)
	assert.False(t, o.CheckConnectivity(context.Background(), 0))
}

func TestCheckConnectivity_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		server.Close()
	}()

	o := NewOracle(server.URL, 4*time.Second)

	start := time.Now()
	ok := o.CheckConnectivity(context.Background(), 50*time.Millisecond)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCheckConnectivity_NoProbeURL(t *testing.T) {
	o := NewOracle("", time.Second)
	assert.False(t, o.CheckConnectivity(context.Background(), 0))
}
