// internal/semantics/datamuse.go
//
// Relatedness check backed by the Datamuse word API.
//
// Two words are related when the candidate appears in any Datamuse result list
// for the current word. Relation codes are queried in two rounds:
//   - primary:   means-like, sounds-like, spelled-like, synonyms, antonyms, homophones
//   - secondary: triggers, adjective/noun pairs, bigrams, kind-of, more-general,
//                comprises, part-of, consonant match
// The secondary round only runs when the primary round finds nothing. Queries in
// a round run concurrently.
//
// Fail closed: any transport or decode error makes the pair unrelated. The
// error is logged, never returned, so the game treats it as an ordinary
// rejection.

package semantics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultBaseURL is the public Datamuse endpoint.
const DefaultBaseURL = "https://api.datamuse.com/words"

var (
	primaryCodes   = []string{"ml", "sl", "sp", "rel_syn", "rel_ant", "rel_hom"}
	secondaryCodes = []string{"rel_trg", "rel_jja", "rel_jjb", "rel_bga", "rel_bgb", "rel_spc", "rel_gen", "rel_com", "rel_par", "rel_cns"}
)

type result struct {
	Word string `json:"word"`
}

// Client queries Datamuse. Safe for concurrent use.
type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
	tracer  trace.Tracer
}

// New returns a Client. An empty baseURL uses DefaultBaseURL; a nil hc uses
// http.DefaultClient. timeout bounds one whole AreRelated call.
func New(baseURL string, timeout time.Duration, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		base:    baseURL,
		http:    hc,
		timeout: timeout,
		tracer:  otel.Tracer("github.com/robalobadob/wordripple/internal/semantics"),
	}
}

// AreRelated reports whether candidate is semantically related to current.
func (c *Client) AreRelated(ctx context.Context, current, candidate string) bool {
	current = strings.ToLower(strings.TrimSpace(current))
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	if current == "" || candidate == "" {
		return false
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := c.tracer.Start(ctx, "datamuse.related", trace.WithAttributes(
		attribute.String("word.current", current),
		attribute.String("word.candidate", candidate),
	))
	defer span.End()

	for round, set := range [][]string{primaryCodes, secondaryCodes} {
		ok, err := c.anyContains(ctx, set, current, candidate)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "datamuse query failed")
			log.Warn().Err(err).Str("word", candidate).Str("current", current).Msg("relatedness check failed")
			return false
		}
		if ok {
			span.SetAttributes(attribute.Int("datamuse.round", round+1))
			return true
		}
	}
	return false
}

// anyContains runs one round of queries concurrently and reports whether any
// result list contains candidate.
func (c *Client) anyContains(ctx context.Context, relCodes []string, current, candidate string) (bool, error) {
	g, gctx := errgroup.WithContext(ctx)
	lists := make([][]string, len(relCodes))
	for i, code := range relCodes {
		g.Go(func() error {
			words, err := c.query(gctx, code, current)
			if err != nil {
				return err
			}
			lists[i] = words
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	return lo.Contains(lo.Flatten(lists), candidate), nil
}

// query fetches one relation list, e.g. /words?rel_syn=ocean.
func (c *Client) query(ctx context.Context, code, w string) ([]string, error) {
	u := c.base + "?" + url.Values{code: {w}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("datamuse %s: %w", code, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("datamuse %s: status %d", code, res.StatusCode)
	}
	var out []result
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("datamuse %s: decode: %w", code, err)
	}
	return lo.Map(out, func(r result, _ int) string { return strings.ToLower(r.Word) }), nil
}
