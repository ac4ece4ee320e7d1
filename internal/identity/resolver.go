// Package identity maps bracket-local handles to persistent community
// identities, growing the mapping through confirmed existence probes.
package identity

import (
	"context"
	"strings"

	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Prober checks whether a candidate identity exists on the external
// community service. Probe errors are transient network conditions, not
// a statement about existence.
type Prober interface {
	Exists(ctx context.Context, candidate string) (bool, error)
}

// Mapping is the persistent handle-to-identity table. Lookups are
// case-insensitive: keys are stored lowercased, values keep the case
// they were confirmed with.
type Mapping struct {
	entries map[string]string
	dirty   bool
}

// NewMapping builds a Mapping from a persisted table. Keys are
// lowercased on the way in so hand-edited files stay forgiving.
func NewMapping(entries map[string]string) *Mapping {
	m := &Mapping{entries: make(map[string]string, len(entries))}
	for handle, id := range entries {
		m.entries[strings.ToLower(handle)] = id
	}
	return m
}

// Lookup returns the identity recorded for handle, if any.
func (m *Mapping) Lookup(handle string) (string, bool) {
	id, ok := m.entries[strings.ToLower(handle)]
	return id, ok
}

// Record stores a confirmed handle-to-identity pair.
func (m *Mapping) Record(handle, id string) {
	m.entries[strings.ToLower(handle)] = id
	m.dirty = true
}

// Dirty reports whether the mapping gained entries since construction.
func (m *Mapping) Dirty() bool {
	return m.dirty
}

// Entries returns the mapping table for persistence.
func (m *Mapping) Entries() map[string]string {
	out := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// Len returns the number of recorded pairs.
func (m *Mapping) Len() int {
	return len(m.entries)
}

// Resolver resolves handles against the mapping, falling back to an
// existence probe for unknown handles.
type Resolver struct {
	mapping *Mapping
	prober  Prober
	log     logger.Logger
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithLogger sets a custom logger for the resolver.
func WithLogger(log logger.Logger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewResolver constructs a Resolver over the given mapping and prober.
func NewResolver(mapping *Mapping, prober Prober, opts ...Option) *Resolver {
	r := &Resolver{
		mapping: mapping,
		prober:  prober,
		log:     logger.Get(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps a bracket handle to a persistent identity.
//
// A known handle returns immediately with no side effect. Otherwise the
// literal handle is probed as a candidate identity; a confirmed probe
// records handle -> handle (case preserved) in the mapping and returns
// it. A failed or negative probe returns ok == false: the caller keeps
// the participant in the scoring set and flags the row, it never drops
// or aborts.
func (r *Resolver) Resolve(ctx context.Context, handle string) (string, bool) {
	if handle == "" {
		return "", false
	}
	if id, ok := r.mapping.Lookup(handle); ok {
		metrics.RecordMappingHit()
		return id, true
	}

	exists, err := r.prober.Exists(ctx, handle)
	if err != nil {
		r.log.Warn(ctx, "identity probe failed, leaving handle unresolved",
			logger.String("handle", handle),
			logger.Error(err),
		)
		return "", false
	}
	if !exists {
		return "", false
	}

	r.mapping.Record(handle, handle)
	r.log.Info(ctx, "confirmed new identity mapping",
		logger.String("handle", handle),
	)
	return handle, true
}
