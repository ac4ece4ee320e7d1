package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/standings"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeProvider serves canned bracket data and retains raw payloads.
type fakeProvider struct {
	tournament   model.Tournament
	participants []model.Participant
	rawT, rawP   []byte
	err          error
}

func (f *fakeProvider) Tournament(context.Context, string) (model.Tournament, error) {
	return f.tournament, f.err
}

func (f *fakeProvider) Participants(context.Context, int64) ([]model.Participant, error) {
	return f.participants, f.err
}

func (f *fakeProvider) RawTournament() []byte   { return f.rawT }
func (f *fakeProvider) RawParticipants() []byte { return f.rawP }

// fakeStores keeps every document in memory and records flush order.
type fakeStores struct {
	ledgers   map[string]map[string]int
	mapping   map[string]string
	processed []int64

	saves []string
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		ledgers: map[string]map[string]int{},
		mapping: map[string]string{},
	}
}

func (f *fakeStores) LoadLedger(name string) (map[string]int, error) {
	ledger, ok := f.ledgers[name]
	if !ok {
		return nil, errors.New("required store file missing: " + name)
	}
	copied := make(map[string]int, len(ledger))
	for k, v := range ledger {
		copied[k] = v
	}
	return copied, nil
}

func (f *fakeStores) SaveLedger(name string, ledger map[string]int) error {
	f.ledgers[name] = ledger
	f.saves = append(f.saves, "ledger")
	return nil
}

func (f *fakeStores) LoadMapping() (map[string]string, error) {
	return f.mapping, nil
}

func (f *fakeStores) SaveMapping(mapping map[string]string) error {
	f.mapping = mapping
	f.saves = append(f.saves, "mapping")
	return nil
}

func (f *fakeStores) LoadProcessed() ([]int64, error) {
	return f.processed, nil
}

func (f *fakeStores) SaveProcessed(ids []int64) error {
	f.processed = ids
	f.saves = append(f.saves, "processed")
	return nil
}

// fakeProber confirms only listed candidates and never errors.
type fakeProber struct {
	exists map[string]bool
}

func (f *fakeProber) Exists(_ context.Context, candidate string) (bool, error) {
	return f.exists[candidate], nil
}

func fixture() (*fakeProvider, *fakeStores, *fakeProber) {
	provider := &fakeProvider{
		tournament: model.Tournament{ID: 1437, Name: "Weekly 42", State: "complete", GameID: 394},
		participants: []model.Participant{
			{Handle: "Alice", Placement: 3},
			{Handle: "carol", Placement: 5},
		},
		rawT: []byte(`{"tournament": {"id": 1437}}`),
		rawP: []byte(`[{"participant": {"final_rank": 3}}]`),
	}
	stores := newFakeStores()
	stores.ledgers["melee.json"] = map[string]int{"A": 10, "B": 8}
	stores.mapping = map[string]string{"alice": "A"}
	prober := &fakeProber{exists: map[string]bool{"carol": true}}
	return provider, stores, prober
}

func service(provider *fakeProvider, stores *fakeStores, prober *fakeProber) *app.Service {
	return app.New(
		app.WithProvider(provider),
		app.WithStores(stores),
		app.WithProber(prober),
		app.WithGameLedgers(map[string]string{"394": "melee.json"}),
		app.WithClock(func() time.Time {
			return time.Date(2015, time.March, 14, 9, 26, 53, 0, time.UTC)
		}),
	)
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	Convey("Given a completed bracket and a seeded ledger", t, func() {
		provider, stores, prober := fixture()
		svc := service(provider, stores, prober)

		Convey("When running the pipeline", func() {
			result, err := svc.Run(ctx, app.RunRequest{Bracket: "weekly42"})
			So(err, ShouldBeNil)

			Convey("Then points merge into the ledger additively", func() {
				So(stores.ledgers["melee.json"], ShouldResemble, map[string]int{
					"A": 16, "B": 8, "carol": 2,
				})
			})

			Convey("Then the report reflects the new ordering", func() {
				So(result.Report, ShouldContainSubstring, "+0|1|/u/A|16\n")
				So(result.Report, ShouldContainSubstring, "+0|2|/u/B|8\n")
				So(result.Report, ShouldContainSubstring, "+2|3|/u/carol|2\n")
			})

			Convey("Then the confirmed probe grew the mapping", func() {
				So(stores.mapping, ShouldContainKey, "carol")
			})

			Convey("Then the tournament is recorded as processed last", func() {
				So(result.Flushed, ShouldBeTrue)
				So(stores.processed, ShouldResemble, []int64{1437})
				So(stores.saves, ShouldResemble, []string{"ledger", "mapping", "processed"})
			})
		})

		Convey("When running the same bracket twice", func() {
			_, err := svc.Run(ctx, app.RunRequest{Bracket: "weekly42"})
			So(err, ShouldBeNil)

			_, err = svc.Run(ctx, app.RunRequest{Bracket: "weekly42"})

			Convey("Then the second run is a guarded no-op", func() {
				So(err, ShouldWrap, app.ErrAlreadyProcessed)
				So(stores.ledgers["melee.json"]["A"], ShouldEqual, 16)
				So(stores.saves, ShouldHaveLength, 3)
			})

			Convey("And the guard can be overridden explicitly", func() {
				result, err := svc.Run(ctx, app.RunRequest{Bracket: "weekly42", Rerun: true})
				So(err, ShouldBeNil)
				So(result.Flushed, ShouldBeTrue)
				So(stores.ledgers["melee.json"]["A"], ShouldEqual, 22)
			})
		})

		Convey("When running dry", func() {
			result, err := svc.Run(ctx, app.RunRequest{Bracket: "weekly42", DryRun: true})
			So(err, ShouldBeNil)

			Convey("Then the report is produced but nothing is flushed", func() {
				So(result.Report, ShouldContainSubstring, "/u/A")
				So(result.Flushed, ShouldBeFalse)
				So(stores.saves, ShouldBeEmpty)
				So(stores.ledgers["melee.json"], ShouldResemble, map[string]int{"A": 10, "B": 8})
				So(stores.processed, ShouldBeEmpty)
			})
		})

		Convey("When listing prospective entrants only", func() {
			result, err := svc.Run(ctx, app.RunRequest{Bracket: "weekly42", NewOnly: true})
			So(err, ShouldBeNil)

			Convey("Then new identities are reported without being merged", func() {
				So(result.NewIdentities, ShouldResemble, []string{"carol"})
				So(result.Report, ShouldNotContainSubstring, "carol")
				So(result.Flushed, ShouldBeFalse)
				So(stores.saves, ShouldBeEmpty)
			})
		})

		Convey("When listing players only", func() {
			result, err := svc.Run(ctx, app.RunRequest{Bracket: "weekly42", PlayersOnly: true})
			So(err, ShouldBeNil)

			Convey("Then the handle-to-identity table comes back and no merge happens", func() {
				So(result.PlayerTable, ShouldContainSubstring, "Alice")
				So(result.PlayerTable, ShouldContainSubstring, "A")
				So(result.Report, ShouldBeEmpty)
				So(stores.saves, ShouldBeEmpty)
			})
		})

		Convey("When a handle cannot be resolved", func() {
			prober.exists = map[string]bool{}
			result, err := svc.Run(ctx, app.RunRequest{Bracket: "weekly42"})
			So(err, ShouldBeNil)

			Convey("Then its points count under the handle, flagged as unknown", func() {
				So(stores.ledgers["melee.json"]["carol"], ShouldEqual, 2)
				So(result.Report, ShouldContainSubstring, "carol (unknown)")
			})
		})

		Convey("When forced entries and exclusions are supplied", func() {
			result, err := svc.Run(ctx, app.RunRequest{
				Bracket:    "weekly42",
				Exclusions: []string{"carol"},
				Forced:     []model.ForcedEntry{{Handle: "Grandmaster", Placement: 1}},
			})
			So(err, ShouldBeNil)

			Convey("Then the excluded handle never reaches the ledger", func() {
				So(stores.ledgers["melee.json"], ShouldNotContainKey, "carol")
			})

			Convey("Then the forced identity is scored without resolution", func() {
				So(stores.ledgers["melee.json"]["Grandmaster"], ShouldEqual, 10)
				So(result.Report, ShouldContainSubstring, "/u/Grandmaster")
			})
		})

		Convey("When raw payload dumps are requested", func() {
			result, err := svc.Run(ctx, app.RunRequest{
				Bracket: "weekly42",
				DryRun:  true,
				Dump:    []string{app.DumpTournament},
			})
			So(err, ShouldBeNil)

			Convey("Then the payload is re-indented with stable keys", func() {
				So(result.Dumps[app.DumpTournament], ShouldEqual,
					"{\n    \"tournament\": {\n        \"id\": 1437\n    }\n}")
			})
		})
	})

	Convey("Given a bracket that is still underway", t, func() {
		provider, stores, prober := fixture()
		provider.tournament.State = "underway"
		svc := service(provider, stores, prober)

		Convey("When running the pipeline", func() {
			_, err := svc.Run(ctx, app.RunRequest{Bracket: "weekly42"})

			Convey("Then it fails the completeness precondition with no mutation", func() {
				So(err, ShouldWrap, standings.ErrNotComplete)
				So(stores.saves, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a bracket for an unsupported game", t, func() {
		provider, stores, prober := fixture()
		provider.tournament.GameID = 999
		svc := service(provider, stores, prober)

		Convey("When running the pipeline", func() {
			_, err := svc.Run(ctx, app.RunRequest{Bracket: "weekly42"})

			Convey("Then it fails closed before touching any ledger", func() {
				So(err, ShouldWrap, app.ErrUnsupportedGame)
				So(stores.saves, ShouldBeEmpty)
			})

			Convey("But a game override selects the ledger explicitly", func() {
				result, err := svc.Run(ctx, app.RunRequest{Bracket: "weekly42", GameID: 394})
				So(err, ShouldBeNil)
				So(result.Flushed, ShouldBeTrue)
			})
		})
	})
}
