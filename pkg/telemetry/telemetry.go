// Package telemetry carries human-readable state from actions to whoever is watching.
package telemetry

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// Packet is a set of key/value pairs collected during one control cycle.
// A nil *Packet is valid and silently drops everything written to it.
type Packet struct {
	keys   []string
	fields map[string]any
}

// NewPacket returns an empty packet.
func NewPacket() *Packet {
	return &Packet{fields: make(map[string]any)}
}

// Put records value under key. Keys keep the order of their first Put.
func (p *Packet) Put(key string, value any) {
	if p == nil {
		return
	}
	if p.fields == nil {
		p.fields = make(map[string]any)
	}
	if _, ok := p.fields[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.fields[key] = value
}

// Get returns the value stored under key.
func (p *Packet) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.fields[key]
	return v, ok
}

// Keys returns the recorded keys in insertion order.
func (p *Packet) Keys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, len(p.keys))
	copy(keys, p.keys)
	return keys
}

// Len returns the number of recorded keys.
func (p *Packet) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Fields returns a copy of the recorded values.
func (p *Packet) Fields() map[string]any {
	fields := make(map[string]any, p.Len())
	if p == nil {
		return fields
	}
	for k, v := range p.fields {
		fields[k] = v
	}
	return fields
}

// Reset clears the packet for reuse in the next cycle.
func (p *Packet) Reset() {
	if p == nil {
		return
	}
	p.keys = p.keys[:0]
	clear(p.fields)
}

// Lines formats the packet as "key: value" lines in insertion order.
func (p *Packet) Lines() []string {
	lines := make([]string, 0, p.Len())
	for _, k := range p.Keys() {
		lines = append(lines, fmt.Sprintf("%s: %v", k, p.fields[k]))
	}
	return lines
}

// Sink receives a packet at the end of every control cycle.
// Implementations must not retain the packet after Send returns.
type Sink interface {
	Send(p *Packet)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(p *Packet)

// Send implements Sink.
func (f SinkFunc) Send(p *Packet) { f(p) }

// Nop discards every packet.
var Nop Sink = SinkFunc(func(*Packet) {})

// LogSink writes each non-empty packet as a single debug record.
type LogSink struct {
	Logger *log.Logger
}

var _ Sink = LogSink{}

// Send implements Sink.
func (s LogSink) Send(p *Packet) {
	if p.Len() == 0 {
		return
	}
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	kv := make([]any, 0, 2*p.Len())
	for _, k := range p.Keys() {
		v, _ := p.Get(k)
		kv = append(kv, k, v)
	}
	logger.Debug("telemetry", kv...)
}
