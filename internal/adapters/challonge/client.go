// Package challonge is the bracket data provider client.
//
// It speaks the Challonge v1 REST API with basic-auth credentials and
// maps provider payloads onto the domain model. Network and non-200
// failures are fatal for the run: the pipeline performs no retries, so
// errors carry the name of the failing call for manual retry.
package challonge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/metrics"
	"github.com/valyala/fasthttp"
)

const (
	defaultBaseURL = "https://api.challonge.com/v1"

	readTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
	maxConns     = 4
)

// Client talks to the bracket provider.
type Client struct {
	baseURL string
	auth    string
	client  *fasthttp.Client

	// Raw payloads of the most recent calls, kept for --dump.
	rawTournament   []byte
	rawParticipants []byte
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// New constructs a Client authenticating as username with the given API key.
func New(username, key string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		auth:    "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+key)),
		client: &fasthttp.Client{
			MaxConnsPerHost: maxConns,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tournament fetches bracket metadata. ref may be a full challonge URL,
// a subdomain.slug pair, a bare slug, or a numeric id. Subdomain
// brackets are not addressable directly and resolve through the index
// endpoint, matched by full URL.
func (c *Client) Tournament(ctx context.Context, ref string) (model.Tournament, error) {
	slug, subdomain := parseRef(ref)
	if subdomain != "" {
		t, err := c.findBySubdomain(ctx, ref, subdomain)
		if err != nil {
			return model.Tournament{}, err
		}
		slug = fmt.Sprintf("%d", t.ID)
	}

	url := fmt.Sprintf("%s/tournaments/%s.json", c.baseURL, slug)
	var payload tournamentEnvelope
	raw, err := c.get(ctx, "tournament", url, &payload)
	if err != nil {
		return model.Tournament{}, fmt.Errorf("fetch tournament %q: %w", ref, err)
	}
	c.rawTournament = raw
	return payload.Tournament.toModel(), nil
}

// Participants fetches the bracket's participant list.
func (c *Client) Participants(ctx context.Context, tournamentID int64) ([]model.Participant, error) {
	url := fmt.Sprintf("%s/tournaments/%d/participants.json", c.baseURL, tournamentID)
	var payload []participantEnvelope
	raw, err := c.get(ctx, "participants", url, &payload)
	if err != nil {
		return nil, fmt.Errorf("fetch participants of %d: %w", tournamentID, err)
	}
	c.rawParticipants = raw

	out := make([]model.Participant, 0, len(payload))
	for _, p := range payload {
		out = append(out, p.Participant.toModel())
	}
	return out, nil
}

// RawTournament returns the raw payload of the last Tournament call.
func (c *Client) RawTournament() []byte { return c.rawTournament }

// RawParticipants returns the raw payload of the last Participants call.
func (c *Client) RawParticipants() []byte { return c.rawParticipants }

// findBySubdomain lists the organization's brackets and matches ref
// against their full URLs.
func (c *Client) findBySubdomain(ctx context.Context, ref, subdomain string) (tournament, error) {
	url := fmt.Sprintf("%s/tournaments.json?subdomain=%s", c.baseURL, subdomain)
	var payload []tournamentEnvelope
	if _, err := c.get(ctx, "tournament_index", url, &payload); err != nil {
		return tournament{}, fmt.Errorf("list %s brackets: %w", subdomain, err)
	}
	for _, t := range payload {
		if sameBracketURL(t.Tournament.FullChallongeURL, ref) {
			return t.Tournament, nil
		}
	}
	return tournament{}, fmt.Errorf("%w: no bracket at %q under subdomain %s", ErrNotFound, ref, subdomain)
}

// get performs an authenticated GET, decodes into payload, and returns
// the raw body.
func (c *Client) get(ctx context.Context, call, url string, payload any) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	metrics.ObserveProviderRequest(call, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", call, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrStatus, call, resp.StatusCode())
	}

	body := append([]byte(nil), resp.Body()...)
	if err := json.Unmarshal(body, payload); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", call, err)
	}
	return body, nil
}

// parseRef normalizes a bracket reference into a slug and an optional
// subdomain. "https://smash.challonge.com/weekly42" yields
// ("weekly42", "smash"); a bare slug or numeric id passes through.
func parseRef(ref string) (slug, subdomain string) {
	r := strings.TrimPrefix(ref, "https://")
	r = strings.TrimPrefix(r, "http://")
	if host, rest, ok := strings.Cut(r, "challonge.com/"); ok {
		sub := strings.TrimSuffix(host, ".")
		r = rest
		if sub != "" && sub != "www" {
			return strings.Trim(r, "/"), sub
		}
		return strings.Trim(r, "/"), ""
	}
	// Not a URL: allow the legacy "subdomain.slug" shorthand.
	if sub, rest, ok := strings.Cut(r, "."); ok && sub != "" && rest != "" {
		return rest, sub
	}
	return r, ""
}

// sameBracketURL compares a provider-reported full URL with the
// operator-supplied reference, tolerating a missing scheme.
func sameBracketURL(full, ref string) bool {
	if full == ref {
		return true
	}
	trim := func(s string) string {
		s = strings.TrimPrefix(s, "https://")
		s = strings.TrimPrefix(s, "http://")
		return strings.TrimSuffix(s, "/")
	}
	return trim(full) == trim(ref)
}

// Wire types for the provider's envelope-per-object payloads.

type tournamentEnvelope struct {
	Tournament tournament `json:"tournament"`
}

type tournament struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	State            string `json:"state"`
	GameID           int64  `json:"game_id"`
	FullChallongeURL string `json:"full_challonge_url"`
}

func (t tournament) toModel() model.Tournament {
	return model.Tournament{
		ID:     t.ID,
		Name:   t.Name,
		State:  t.State,
		GameID: t.GameID,
		URL:    t.FullChallongeURL,
	}
}

type participantEnvelope struct {
	Participant participant `json:"participant"`
}

type participant struct {
	ChallongeUsername string `json:"challonge_username"`
	FinalRank         *int   `json:"final_rank"`
}

func (p participant) toModel() model.Participant {
	out := model.Participant{Handle: p.ChallongeUsername}
	if p.FinalRank != nil {
		out.Placement = *p.FinalRank
	}
	return out
}
