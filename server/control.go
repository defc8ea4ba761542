// File: server/control.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// controlAdapter implements api.Control, api.Debug, and api.MetricsSink
// for the server facade: config/stats snapshots, a name -> probe
// registry Stats merges into its output, and the counters that feed
// api.APIMetrics/api.SessionStatus.

package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/brinewave/ws/api"
	"github.com/brinewave/ws/pool"
)

const (
	serviceName    = "ws"
	serviceVersion = "0.1.0"
)

type controlAdapter struct {
	cfg           *Config
	pool          api.BufferPool
	handshakePool *pool.Generic[[]byte]
	startedAt     time.Time

	activeConns       int64
	totalAccepts      int64
	handshakeFailures int64
	framesIn          int64
	framesOut         int64
	bytesIn           int64
	bytesOut          int64

	sessionsByStatus [int(api.SessionClosed) + 1]int64

	mu      sync.Mutex
	probes  map[string]func() any
	reloads []func()
}

func newControlAdapter(cfg *Config, pool api.BufferPool, handshakePool *pool.Generic[[]byte]) *controlAdapter {
	return &controlAdapter{
		cfg:           cfg,
		pool:          pool,
		handshakePool: handshakePool,
		startedAt:     time.Now(),
		probes:        make(map[string]func() any),
	}
}

func (c *controlAdapter) GetConfig() map[string]any {
	return map[string]any{
		"address":                 c.cfg.Address,
		"port":                    c.cfg.Port,
		"unix_path":               c.cfg.UnixPath,
		"buffer_size":             c.cfg.BufferSize,
		"max_message_size":        c.cfg.MaxMessageSize,
		"handshake_max_size":      c.cfg.HandshakeMaxSize,
		"handshake_pool_count":    c.cfg.HandshakePoolCount,
		"large_buffer_pool_count": c.cfg.LargeBufferPoolCount,
		"large_buffer_size":       c.cfg.LargeBufferSize,
		"handle_ping":             c.cfg.HandlePing,
		"handle_pong":             c.cfg.HandlePong,
		"handle_close":            c.cfg.HandleClose,
	}
}

// SetConfig is not supported: every tunable this server exposes
// shapes a fixed-size pool or buffer allocated once at New, so there
// is nothing safe to mutate on a running server.
func (c *controlAdapter) SetConfig(map[string]any) error {
	return api.ErrNotSupported
}

// Stats reports the orchestrator's runtime counters: connection and
// session-lifecycle gauges, handshake/frame/byte/pool-exhaustion
// counters, the buffer pool's own accounting, any registered probes,
// and the api.APIMetrics/api.ServiceInfo snapshots those counters feed.
func (c *controlAdapter) Stats() map[string]any {
	bufStats := c.pool.Stats()
	poolExhaustion := bufStats.HeapFallback
	if c.handshakePool != nil {
		poolExhaustion += c.handshakePool.Timeouts()
	}

	framesIn := atomic.LoadInt64(&c.framesIn)
	framesOut := atomic.LoadInt64(&c.framesOut)
	bytesIn := atomic.LoadInt64(&c.bytesIn)
	bytesOut := atomic.LoadInt64(&c.bytesOut)

	byStatus := make(map[string]int64, len(c.sessionsByStatus))
	for s := api.SessionUnknown; int(s) <= int(api.SessionClosed); s++ {
		byStatus[s.String()] = atomic.LoadInt64(&c.sessionsByStatus[s])
	}

	out := map[string]any{
		"active_connections":     atomic.LoadInt64(&c.activeConns),
		"total_accepted":         atomic.LoadInt64(&c.totalAccepts),
		"handshake_failures":     atomic.LoadInt64(&c.handshakeFailures),
		"frames_in":              framesIn,
		"frames_out":             framesOut,
		"bytes_in":               bytesIn,
		"bytes_out":              bytesOut,
		"pool_exhaustion_events": poolExhaustion,
		"uptime_seconds":         time.Since(c.startedAt).Seconds(),
		"buffer_pool":            bufStats,
		"sessions_by_status":     byStatus,
		"metrics": api.APIMetrics{
			NumSessions:     int(atomic.LoadInt64(&c.activeConns)),
			NumMessages:     int(framesIn + framesOut),
			InboundTraffic:  uint64(bytesIn),
			OutboundTraffic: uint64(bytesOut),
			StartedAt:       c.startedAt,
		},
		"service": api.ServiceInfo{
			Name:      serviceName,
			Version:   serviceVersion,
			StartedAt: c.startedAt,
		},
	}

	c.mu.Lock()
	for name, fn := range c.probes {
		out[name] = fn()
	}
	c.mu.Unlock()
	return out
}

// OnReload registers fn to run on a future configuration reload. No
// caller triggers a reload today (SetConfig always refuses), so
// registered callbacks never fire; kept for a later reload mechanism
// without changing the api.Control contract.
func (c *controlAdapter) OnReload(fn func()) {
	c.mu.Lock()
	c.reloads = append(c.reloads, fn)
	c.mu.Unlock()
}

func (c *controlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.mu.Lock()
	c.probes[name] = fn
	c.mu.Unlock()
}

// DumpState satisfies api.Debug with the same snapshot Stats reports,
// so a caller that only has a Debug handle still sees live counters.
func (c *controlAdapter) DumpState() map[string]any {
	return c.Stats()
}

// RegisterProbe satisfies api.Debug by delegating to the same probe
// map RegisterDebugProbe fills, so a probe registered through either
// interface shows up in both Stats and DumpState.
func (c *controlAdapter) RegisterProbe(name string, fn func() any) {
	c.RegisterDebugProbe(name, fn)
}

// AddFrameIn satisfies api.MetricsSink for an inbound frame of n
// payload bytes.
func (c *controlAdapter) AddFrameIn(n int) {
	atomic.AddInt64(&c.framesIn, 1)
	atomic.AddInt64(&c.bytesIn, int64(n))
}

// AddFrameOut satisfies api.MetricsSink for an outbound frame of n
// bytes, header included.
func (c *controlAdapter) AddFrameOut(n int) {
	atomic.AddInt64(&c.framesOut, 1)
	atomic.AddInt64(&c.bytesOut, int64(n))
}

// IncHandshakeFailure satisfies api.MetricsSink for an opening
// handshake that did not reach a 101 reply.
func (c *controlAdapter) IncHandshakeFailure() {
	atomic.AddInt64(&c.handshakeFailures, 1)
}

// enterSession and leaveSession maintain sessionsByStatus as a live
// gauge: serveConn calls enterSession on accept, moves the connection
// between statuses with a leaveSession/enterSession pair at each
// change, and calls leaveSession with whatever status it last reached
// when it exits.
func (c *controlAdapter) enterSession(s api.SessionStatus) {
	atomic.AddInt64(&c.sessionsByStatus[s], 1)
}

func (c *controlAdapter) leaveSession(s api.SessionStatus) {
	atomic.AddInt64(&c.sessionsByStatus[s], -1)
}

var _ api.Control = (*controlAdapter)(nil)
var _ api.Debug = (*controlAdapter)(nil)
var _ api.MetricsSink = (*controlAdapter)(nil)
