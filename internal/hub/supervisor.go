package hub

import (
	"context"
	"log"
	"sync"
	"time"

	"teamchat/internal/websocket"
)

// evictor removes dead connections; satisfied by the Hub.
type evictor interface {
	Deregister(conn *websocket.Connection)
}

// Supervisor is the periodic heartbeat. Each cycle it evicts connections
// that never acknowledged the previous probe, then clears the liveness
// flag on the rest and probes them again. A connection that misses two
// consecutive cycles is gone within roughly twice the interval.
type Supervisor struct {
	registry *websocket.Registry
	evictor  evictor
	interval time.Duration
	timeout  time.Duration

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewSupervisor creates a liveness supervisor over the registry.
func NewSupervisor(registry *websocket.Registry, evictor evictor, interval, timeout time.Duration) *Supervisor {
	return &Supervisor{
		registry: registry,
		evictor:  evictor,
		interval: interval,
		timeout:  timeout,
		done:     make(chan struct{}),
	}
}

// Start launches the probe loop on its own timer, independent of the
// per-connection read pumps.
func (s *Supervisor) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop halts the probe loop and waits for it to exit.
func (s *Supervisor) Stop() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}

func (s *Supervisor) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// sweep runs one probe cycle over a registry snapshot.
func (s *Supervisor) sweep() {
	for _, conn := range s.registry.Connections() {
		if !conn.Alive() {
			log.Printf("hub: evicting unresponsive connection for user %q", conn.UserID())
			_ = conn.Close()
			s.evictor.Deregister(conn)
			continue
		}

		conn.SetAlive(false)
		if err := conn.Ping(s.timeout); err != nil {
			log.Printf("hub: probe failed for user %q: %v", conn.UserID(), err)
			_ = conn.Close()
			s.evictor.Deregister(conn)
		}
	}
}
