// Package probe checks whether a candidate identity exists on the
// external community service via a single HTTP existence check.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/podium/pkg/metrics"
	"github.com/valyala/fasthttp"
)

const (
	// defaultURLPattern is the profile URL checked for existence.
	defaultURLPattern = "https://www.reddit.com/user/%s/about.json"

	defaultUserAgent = "podium-ranking-bot"

	readTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
)

// HTTPProber implements identity.Prober over a profile URL pattern: a
// 200 response means the identity exists, anything else means it does
// not. Transport errors are returned as errors so the resolver can
// degrade instead of recording a false negative.
type HTTPProber struct {
	pattern   string
	userAgent string
	client    *fasthttp.Client
}

// Option applies a configuration option to the HTTPProber.
type Option func(*HTTPProber)

// WithURLPattern sets the profile URL pattern; it must contain exactly
// one %s placeholder for the candidate identity.
func WithURLPattern(pattern string) Option {
	return func(p *HTTPProber) {
		if pattern != "" {
			p.pattern = pattern
		}
	}
}

// WithUserAgent sets the User-Agent header sent on probes.
func WithUserAgent(ua string) Option {
	return func(p *HTTPProber) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

// New constructs an HTTPProber.
func New(opts ...Option) *HTTPProber {
	p := &HTTPProber{
		pattern:   defaultURLPattern,
		userAgent: defaultUserAgent,
		client: &fasthttp.Client{
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Exists reports whether candidate has a profile on the external service.
func (p *HTTPProber) Exists(ctx context.Context, candidate string) (bool, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf(p.pattern, candidate))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(p.userAgent)

	metrics.RecordProbe()

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = p.client.DoDeadline(req, resp, deadline)
	} else {
		err = p.client.Do(req, resp)
	}
	if err != nil {
		metrics.RecordProbeFailure()
		return false, fmt.Errorf("probe %q: %w", candidate, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		metrics.RecordProbeFailure()
		return false, nil
	}
	return true, nil
}
