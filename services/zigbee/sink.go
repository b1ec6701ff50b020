package zigbee

import (
	"log/slog"

	"zigsense-go/bus"
	"zigsense-go/errcode"
	"zigsense-go/types"
	"zigsense-go/x/conv"
	"zigsense-go/x/timex"
	"zigsense-go/zcl"
)

// Writer sets server attributes while the sink lock is held.
type Writer interface {
	Set(endpoint uint8, cluster, attr uint16, value int16) error
}

// Sink serialises every write to the stack's attribute store behind the
// store's lock.
type Sink struct {
	store AttributeStore
	conn  *bus.Connection // optional
	log   *slog.Logger
}

func NewSink(store AttributeStore, conn *bus.Connection, log *slog.Logger) *Sink {
	if log == nil {
		log = slog.Default()
	}
	return &Sink{store: store, conn: conn, log: log.With("component", "sink")}
}

// Update holds the store lock for the duration of fn. The lock is released
// on every exit path, panics included. Successful writes are published on
// attr/<endpoint>/<cluster>/<attr> after the lock is dropped.
func (s *Sink) Update(fn func(w Writer) error) error {
	tx := &sinkTx{store: s.store}
	err := s.locked(func() error { return fn(tx) })
	for _, u := range tx.done {
		s.publish(u)
	}
	return err
}

// Set is Update with a single write.
func (s *Sink) Set(endpoint uint8, cluster, attr uint16, value int16) error {
	return s.Update(func(w Writer) error { return w.Set(endpoint, cluster, attr, value) })
}

func (s *Sink) locked(fn func() error) error {
	if !s.store.Lock(WaitForever) {
		return errcode.New(errcode.Timeout, "zigbee.sink", "stack lock not acquired")
	}
	defer s.store.Unlock()
	return fn()
}

func (s *Sink) publish(u types.AttributeUpdate) {
	if s.conn == nil {
		return
	}
	s.conn.Publish(s.conn.NewMessage(AttrTopic(u.Endpoint, u.Cluster, u.Attr), u, false))
}

type sinkTx struct {
	store AttributeStore
	done  []types.AttributeUpdate
}

func (t *sinkTx) Set(endpoint uint8, cluster, attr uint16, value int16) error {
	if err := t.store.SetAttribute(endpoint, cluster, zcl.RoleServer, attr, value, false); err != nil {
		return errcode.Wrap(errcode.AttrWrite, "zigbee.set", err)
	}
	t.done = append(t.done, types.AttributeUpdate{
		Endpoint: endpoint,
		Cluster:  cluster,
		Attr:     attr,
		Value:    value,
		TS:       timex.NowMs(),
	})
	return nil
}

// AttrTopic returns the bus topic of one attribute, e.g. attr/10/0402/0000.
func AttrTopic(endpoint uint8, cluster, attr uint16) bus.Topic {
	var eb [3]byte
	var cb, ab [4]byte
	return bus.T(
		"attr",
		string(conv.Utoa(eb[:], uint64(endpoint))),
		string(conv.Hex16(cb[:], cluster)),
		string(conv.Hex16(ab[:], attr)),
	)
}
