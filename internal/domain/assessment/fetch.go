// Package assessment drives one end-to-end run against the remote
// assessment API: enumerate every patient page, classify each record, and
// submit the three alert lists. All fetches are strictly sequential; the
// only waits are network I/O, the transport's backoff, and a fixed pacing
// delay between pages.
package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/riskscan/riskscan/internal/domain/patient"
	"github.com/riskscan/riskscan/internal/platform/transport"
)

// pageResponse is the fetch endpoint's envelope. The pagination and metadata
// blocks the server sends alongside data are deliberately not modeled: the
// server's hasNext/totalPages claims are not trustworthy and play no part in
// loop control.
type pageResponse struct {
	Data json.RawMessage `json:"data"`
}

// FetchResult is everything one full pagination pass produced.
type FetchResult struct {
	Records []patient.RawRecord
	// Pages is the number of pages that yielded at least one usable record.
	Pages int
	// Skipped counts entries dropped for lacking a non-empty patient_id.
	Skipped int
}

// Fetcher enumerates patient pages until the API runs dry.
type Fetcher struct {
	client   *transport.Client
	baseURL  string
	pageSize int
	pace     time.Duration
	policy   transport.Policy
	logger   zerolog.Logger
}

// NewFetcher creates a Fetcher. pageSize should be the maximum the remote
// API allows, to keep the request count down; pace is the fixed delay
// between page requests that keeps the client under the rate limit.
func NewFetcher(client *transport.Client, baseURL string, pageSize int, pace time.Duration, policy transport.Policy, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		client:   client,
		baseURL:  baseURL,
		pageSize: pageSize,
		pace:     pace,
		policy:   policy,
		logger:   logger,
	}
}

// FetchAll walks pages starting at 1 and stops on the first page that yields
// zero usable records. That presence check is the single termination
// condition; a page claiming hasNext=true but carrying no records still ends
// the walk.
func (f *Fetcher) FetchAll(ctx context.Context) (*FetchResult, error) {
	res := &FetchResult{}

	for page := 1; ; page++ {
		if page > 1 && f.pace > 0 {
			if err := pause(ctx, f.pace); err != nil {
				return nil, err
			}
		}

		url := fmt.Sprintf("%s/patients?page=%d&limit=%d", f.baseURL, page, f.pageSize)
		var resp pageResponse
		if err := f.client.GetJSON(ctx, url, &resp, f.policy); err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}

		records, skipped := decodeRecords(resp.Data)
		res.Skipped += skipped
		if len(records) == 0 {
			f.logger.Info().Int("page", page).Msg("empty page, pagination complete")
			return res, nil
		}

		res.Records = append(res.Records, records...)
		res.Pages = page
		f.logger.Debug().
			Int("page", page).
			Int("records", len(records)).
			Int("skipped", skipped).
			Msg("page fetched")
	}
}

// decodeRecords extracts the usable records from a page's data field. A
// missing data field, a non-array value, or individual entries that are not
// objects with a non-empty string patient_id are all absorbed silently —
// malformed content must never abort the run.
func decodeRecords(raw json.RawMessage) ([]patient.RawRecord, int) {
	if len(raw) == 0 {
		return nil, 0
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, 0
	}

	var (
		records []patient.RawRecord
		skipped int
	)
	for _, entry := range entries {
		var rec patient.RawRecord
		if err := json.Unmarshal(entry, &rec); err != nil {
			skipped++
			continue
		}
		if _, ok := rec.ID(); !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
