// Package heartbeat periodically logs the node's commissioning state and
// the last value written to each attribute.
package heartbeat

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"zigsense-go/bus"
	"zigsense-go/types"
	"zigsense-go/x/timex"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicState           = bus.T("zigbee", "state")
	topicAttrs           = bus.T("attr", "#")
	topicFaults          = bus.T("sensor", "+", "fault")
)

const defaultInterval = 30 * time.Second

// Snapshot is what one heartbeat reports.
type Snapshot struct {
	State  string
	Writes map[string]int16 // keyed by attr/<ep>/<cluster>/<attr>
	Faults int
}

type Service struct {
	log *slog.Logger

	mu     sync.Mutex
	state  string
	writes map[string]int16
	faults int
	beats  int
}

func New(log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		log:    log.With("component", "heartbeat"),
		state:  "unknown",
		writes: map[string]int16{},
	}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	stateSub := conn.Subscribe(topicState)
	attrSub := conn.Subscribe(topicAttrs)
	faultSub := conn.Subscribe(topicFaults)
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(stateSub)
	defer conn.Unsubscribe(attrSub)
	defer conn.Unsubscribe(faultSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("heartbeat service stopping")
			return
		case <-tick.C:
			s.beat()
		case msg := <-cfgSub.Channel():
			if c, ok := msg.Payload.(types.HeartbeatConfig); ok && c.IntervalSeconds > 0 {
				iv := timex.Seconds(c.IntervalSeconds, defaultInterval)
				tick.Reset(iv)
				s.log.Info("heartbeat interval set", "interval", iv)
			}
		case msg := <-stateSub.Channel():
			if st, ok := msg.Payload.(types.CommissioningStatus); ok {
				s.mu.Lock()
				s.state = st.State
				s.mu.Unlock()
			}
		case msg := <-attrSub.Channel():
			if u, ok := msg.Payload.(types.AttributeUpdate); ok {
				s.mu.Lock()
				s.writes[msg.Topic.String()] = u.Value
				s.mu.Unlock()
			}
		case msg := <-faultSub.Channel():
			if _, ok := msg.Payload.(types.SensorFault); ok {
				s.mu.Lock()
				s.faults++
				s.mu.Unlock()
			}
		}
	}
}

func (s *Service) beat() {
	snap := s.Snapshot()
	s.mu.Lock()
	s.beats++
	s.mu.Unlock()

	attrs := []any{"state", snap.State, "faults", snap.Faults}
	keys := make([]string, 0, len(snap.Writes))
	for k := range snap.Writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, snap.Writes[k])
	}
	s.log.Info("heartbeat", attrs...)
}

// Snapshot returns the current view.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := make(map[string]int16, len(s.writes))
	for k, v := range s.writes {
		w[k] = v
	}
	return Snapshot{State: s.state, Writes: w, Faults: s.faults}
}

// Beats returns how many heartbeats were logged.
func (s *Service) Beats() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beats
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
