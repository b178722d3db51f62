package db

import (
	"context"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultPingTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessMonitor keeps track of whether the database answers pings.
// Handlers consult IsReady before touching the store.
type ReadinessMonitor struct {
	pinger      pinger
	interval    time.Duration
	pingTimeout time.Duration
	ready       atomic.Bool
	onChange    func(ready bool)
}

func NewReadinessMonitor(p pinger, interval time.Duration, onChange func(ready bool)) *ReadinessMonitor {
	if onChange == nil {
		onChange = func(bool) {}
	}
	return &ReadinessMonitor{
		pinger:      p,
		interval:    interval,
		pingTimeout: defaultPingTimeout,
		onChange:    onChange,
	}
}

func (m *ReadinessMonitor) IsReady() bool {
	return m.ready.Load()
}

// Check pings the database once and records the result.
func (m *ReadinessMonitor) Check(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, m.pingTimeout)
	defer cancel()

	err := m.pinger.Ping(pingCtx)
	ready := err == nil
	if prev := m.ready.Swap(ready); prev != ready {
		if ready {
			log.Infoln("database connection is ready")
		} else {
			log.Errorf("database connection lost: %s", err)
		}
		m.onChange(ready)
	}

	return ready
}

// Run checks readiness right away and then on every tick, until ctx is done.
func (m *ReadinessMonitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debugln("readiness monitor stopped")
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
