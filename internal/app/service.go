// Package app wires the ranking pipeline: guard, fetch, extract,
// resolve, merge, render, flush.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/points"
	"github.com/okian/podium/internal/domain/processed"
	"github.com/okian/podium/internal/domain/rank"
	"github.com/okian/podium/internal/domain/report"
	"github.com/okian/podium/internal/domain/standings"
	"github.com/okian/podium/internal/identity"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Provider is the bracket data provider consumed by the pipeline.
type Provider interface {
	Tournament(ctx context.Context, ref string) (model.Tournament, error)
	Participants(ctx context.Context, tournamentID int64) ([]model.Participant, error)
}

// Stores is the persistence surface: each method maps to one JSON
// document, loaded once per run and flushed only on success.
type Stores interface {
	LoadLedger(name string) (map[string]int, error)
	SaveLedger(name string, ledger map[string]int) error
	LoadMapping() (map[string]string, error)
	SaveMapping(mapping map[string]string) error
	LoadProcessed() ([]int64, error)
	SaveProcessed(ids []int64) error
}

// Dump payload kinds accepted by RunRequest.Dump.
const (
	DumpTournament   = "tournament"
	DumpParticipants = "participants"
)

// RunRequest describes one pipeline invocation.
type RunRequest struct {
	// Bracket is the provider reference: URL, subdomain.slug, slug or id.
	Bracket string
	// GameID overrides the tournament's game classifier when non-zero.
	GameID int64
	// DryRun renders the report without flushing any store.
	DryRun bool
	// NewOnly lists prospective new entrants and keeps them out of the
	// merge; implies DryRun.
	NewOnly bool
	// PlayersOnly resolves and lists the bracket's identities, skipping
	// the merge entirely.
	PlayersOnly bool
	// Rerun bypasses the already-processed guard.
	Rerun bool
	// Dump selects raw provider payloads to capture.
	Dump []string
	// Forced are operator-supplied entries appended to the standings.
	Forced []model.ForcedEntry
	// Exclusions are handles dropped from the fetched participants.
	Exclusions []string
}

// RunResult is what one invocation produced.
type RunResult struct {
	Tournament    model.Tournament
	Report        string
	PlayerTable   string
	NewIdentities []string
	Dumps         map[string]string
	Flushed       bool
}

// payloadCapturer is implemented by providers that retain raw payloads.
type payloadCapturer interface {
	RawTournament() []byte
	RawParticipants() []byte
}

// Service runs the ranking pipeline. One tournament per invocation,
// synchronous, no internal parallelism.
type Service struct {
	provider Provider
	prober   identity.Prober
	stores   Stores
	table    points.Table
	limit    int
	ledgers  map[string]string
	prefix   string
	metrics  string
	now      func() time.Time
	log      logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithProvider sets the bracket data provider.
func WithProvider(p Provider) Option {
	return func(s *Service) { s.provider = p }
}

// WithProber sets the identity existence prober.
func WithProber(p identity.Prober) Option {
	return func(s *Service) { s.prober = p }
}

// WithStores sets the persistence surface.
func WithStores(st Stores) Option {
	return func(s *Service) { s.stores = st }
}

// WithPointsTable sets the placement-to-points table.
func WithPointsTable(t points.Table) Option {
	return func(s *Service) {
		if t != nil {
			s.table = t
		}
	}
}

// WithPlacementLimit sets the worst placement still scored.
func WithPlacementLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// WithGameLedgers sets the game-id -> ledger-file table. Keys are the
// provider's numeric game ids in decimal.
func WithGameLedgers(table map[string]string) Option {
	return func(s *Service) {
		if table != nil {
			s.ledgers = table
		}
	}
}

// WithIdentityPrefix sets the report's identity prefix.
func WithIdentityPrefix(prefix string) Option {
	return func(s *Service) { s.prefix = prefix }
}

// WithMetricsFile sets the path receiving the end-of-run metrics dump.
func WithMetricsFile(path string) Option {
	return func(s *Service) { s.metrics = path }
}

// WithClock injects the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		table:  points.Default(),
		limit:  7,
		prefix: "/u/",
		now:    time.Now,
		log:    logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one pipeline invocation.
//
// All data gathering happens before any store is written; a failure at
// any point leaves every persisted document untouched. The tournament
// id is recorded as processed only after the ledger and mapping have
// been flushed, so a crashed run can simply be retried.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	log := s.log.With(logger.String("run_id", uuid.NewString()))

	processedIDs, err := s.stores.LoadProcessed()
	if err != nil {
		return nil, err
	}
	guard := processed.New(processedIDs)

	t, err := s.provider.Tournament(ctx, req.Bracket)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "fetched tournament",
		logger.Int64("id", t.ID),
		logger.String("name", t.Name),
		logger.String("state", t.State),
	)

	if guard.Seen(t.ID) && !req.Rerun && !req.PlayersOnly {
		metrics.RecordDuplicateRun()
		return nil, fmt.Errorf("%w: tournament %d", ErrAlreadyProcessed, t.ID)
	}

	ledgerFile, err := s.ledgerFile(req, t)
	if err != nil {
		return nil, err
	}

	ledger, err := s.stores.LoadLedger(ledgerFile)
	if err != nil {
		return nil, err
	}
	rawMapping, err := s.stores.LoadMapping()
	if err != nil {
		return nil, err
	}
	mapping := identity.NewMapping(rawMapping)
	resolver := identity.NewResolver(mapping, s.prober, identity.WithLogger(log))

	parts, err := s.provider.Participants(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Tournament: t}
	if err := s.capture(req, result); err != nil {
		return nil, err
	}

	extractor := standings.New(
		standings.WithTable(s.table),
		standings.WithLimit(s.limit),
		standings.WithExclusions(req.Exclusions),
		standings.WithForced(req.Forced),
		standings.WithWarnFunc(func(msg string) { log.Warn(ctx, msg) }),
	)
	entries, err := extractor.Extract(t, parts)
	if err != nil {
		return nil, err
	}

	batch := s.resolve(ctx, resolver, entries)

	if req.PlayersOnly {
		result.PlayerTable = playerTable(entries, batch)
		return result, nil
	}

	dryRun := req.DryRun
	if req.NewOnly {
		dryRun = true
		batch, result.NewIdentities = splitNewEntrants(ledger, batch)
		for _, id := range result.NewIdentities {
			log.Info(ctx, "new identity, not yet ranked", logger.String("identity", id))
		}
	}

	for _, e := range batch {
		metrics.RecordParticipantScored()
		metrics.RecordPointsAwarded(e.Points)
	}

	ranked := rank.Merge(ledger, batch)
	for _, e := range ranked {
		if e.NewEntrant {
			metrics.RecordNewEntrant()
		}
	}
	metrics.UpdateLedgerSize(len(ledger))

	renderer := report.New(report.WithIdentityPrefix(s.prefix))
	result.Report = renderer.Render(ranked, s.now())

	if !dryRun {
		if err := s.flush(ledgerFile, ledger, mapping, guard, t.ID); err != nil {
			return nil, err
		}
		result.Flushed = true
		log.Info(ctx, "ledger updated",
			logger.String("ledger", ledgerFile),
			logger.Int("entries", len(ledger)),
			logger.Int("scored", len(batch)),
		)
	}

	if s.metrics != "" {
		if err := metrics.WriteSnapshot(s.metrics); err != nil {
			log.Warn(ctx, "metrics snapshot failed", logger.Error(err))
		}
	}
	return result, nil
}

// ledgerFile maps the game classifier to its ledger document, failing
// closed on classifiers outside the configured table.
func (s *Service) ledgerFile(req RunRequest, t model.Tournament) (string, error) {
	gameID := t.GameID
	if req.GameID != 0 {
		gameID = req.GameID
	}
	name, ok := s.ledgers[strconv.FormatInt(gameID, 10)]
	if !ok {
		return "", fmt.Errorf("%w: game id %d", ErrUnsupportedGame, gameID)
	}
	return name, nil
}

// resolve maps the scoring entries to ledger identities. Forced entries
// carry their identity directly; anything the resolver cannot confirm
// keeps its bracket handle and is flagged, never dropped.
func (s *Service) resolve(ctx context.Context, resolver *identity.Resolver, entries []model.ScoringEntry) []model.ResolvedEntry {
	batch := make([]model.ResolvedEntry, 0, len(entries))
	for _, e := range entries {
		resolved := model.ResolvedEntry{Identity: e.Handle, Points: e.Points, Verified: e.Forced}
		if !e.Forced {
			if id, ok := resolver.Resolve(ctx, e.Handle); ok {
				resolved.Identity = id
				resolved.Verified = true
			}
		}
		batch = append(batch, resolved)
	}
	return batch
}

// flush writes all mutated stores, recording the tournament as
// processed last so a crash mid-flush never strands unpublished points.
func (s *Service) flush(ledgerFile string, ledger map[string]int, mapping *identity.Mapping, guard *processed.Set, tournamentID int64) error {
	if err := s.stores.SaveLedger(ledgerFile, ledger); err != nil {
		return err
	}
	if mapping.Dirty() {
		if err := s.stores.SaveMapping(mapping.Entries()); err != nil {
			return err
		}
	}
	guard.Record(tournamentID)
	return s.stores.SaveProcessed(guard.IDs())
}

// capture collects raw provider payloads for the requested dump kinds,
// re-indented with sorted keys.
func (s *Service) capture(req RunRequest, result *RunResult) error {
	if len(req.Dump) == 0 {
		return nil
	}
	capturer, ok := s.provider.(payloadCapturer)
	if !ok {
		return fmt.Errorf("%w: provider does not expose raw payloads", ErrDumpUnavailable)
	}
	result.Dumps = make(map[string]string, len(req.Dump))
	for _, kind := range req.Dump {
		var raw []byte
		switch kind {
		case DumpTournament:
			raw = capturer.RawTournament()
		case DumpParticipants:
			raw = capturer.RawParticipants()
		default:
			return fmt.Errorf("%w: %q", ErrDumpUnavailable, kind)
		}
		pretty, err := prettyJSON(raw)
		if err != nil {
			return err
		}
		result.Dumps[kind] = pretty
	}
	return nil
}

// prettyJSON round-trips a payload through a generic decode so the
// output has sorted keys and stable indentation.
func prettyJSON(raw []byte) (string, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("decode dump payload: %w", err)
	}
	out, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode dump payload: %w", err)
	}
	return string(out), nil
}

// splitNewEntrants removes identities absent from the ledger, returning
// the trimmed batch and the prospective entrants in batch order.
func splitNewEntrants(ledger map[string]int, batch []model.ResolvedEntry) ([]model.ResolvedEntry, []string) {
	kept := make([]model.ResolvedEntry, 0, len(batch))
	var fresh []string
	for _, e := range batch {
		if _, ok := ledger[e.Identity]; ok {
			kept = append(kept, e)
			continue
		}
		fresh = append(fresh, e.Identity)
	}
	return kept, fresh
}

// playerTable renders the handle-to-identity listing for --players.
func playerTable(entries []model.ScoringEntry, batch []model.ResolvedEntry) string {
	var b strings.Builder
	b.WriteString("Challonge Username | Reddit Username\n")
	for i, e := range entries {
		id := batch[i].Identity
		if !batch[i].Verified {
			id = "-"
		}
		fmt.Fprintf(&b, "%-18s | %-18s\n", e.Handle, id)
	}
	return b.String()
}
