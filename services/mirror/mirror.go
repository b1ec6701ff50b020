//go:build !rp2040 && !rp2350

// Package mirror forwards attribute writes, commissioning state and sensor
// faults from the in-process bus to an MQTT broker, CBOR-encoded, for bench
// observation.
package mirror

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"

	"zigsense-go/bus"
	"zigsense-go/errcode"
	"zigsense-go/services/config"
)

// Publisher is the part of an MQTT client the mirror uses.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

var mirrored = []bus.Topic{
	bus.T("attr", "#"),
	bus.T("zigbee", "state"),
	bus.T("sensor", "+", "fault"),
}

// Stats counts forwarded and failed messages.
type Stats struct {
	Sent   uint64
	Failed uint64
}

type Mirror struct {
	pub    Publisher
	prefix string
	qos    byte
	enc    cbor.EncMode
	log    *slog.Logger

	sent, failed atomic.Uint64
}

func New(pub Publisher, cfg config.MirrorConfig, log *slog.Logger) (*Mirror, error) {
	if cfg.QoS < 0 || cfg.QoS > 2 {
		return nil, errcode.New(errcode.InvalidConfig, "mirror.new", "qos must be 0, 1, or 2")
	}
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Mirror{
		pub:    pub,
		prefix: strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:    byte(cfg.QoS),
		enc:    enc,
		log:    log.With("component", "mirror"),
	}, nil
}

// Start forwards matching bus messages until ctx ends.
func (m *Mirror) Start(ctx context.Context, conn *bus.Connection) {
	subs := make([]*bus.Subscription, len(mirrored))
	for i, t := range mirrored {
		subs[i] = conn.Subscribe(t)
	}
	for _, sub := range subs {
		go m.forward(ctx, conn, sub)
	}
}

func (m *Mirror) forward(ctx context.Context, conn *bus.Connection, sub *bus.Subscription) {
	defer conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			m.send(msg)
		}
	}
}

func (m *Mirror) send(msg *bus.Message) {
	payload, err := m.enc.Marshal(msg.Payload)
	if err == nil {
		err = m.pub.Publish(m.Topic(msg.Topic), payload, m.qos, msg.Retained)
	}
	if err != nil {
		m.failed.Add(1)
		m.log.Warn("mirror publish failed", "topic", msg.Topic.String(), "err", err)
		return
	}
	m.sent.Add(1)
}

// Topic maps a bus topic to its broker topic.
func (m *Mirror) Topic(t bus.Topic) string {
	if m.prefix == "" {
		return t.String()
	}
	return m.prefix + "/" + t.String()
}

func (m *Mirror) Stats() Stats {
	return Stats{Sent: m.sent.Load(), Failed: m.failed.Load()}
}
