// Package demo fetches the bundled demo dataset: a static JSON resource
// structurally identical to an uploaded dataset. Failures are terminal and
// reported to the user; there is no retry.
package demo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"optionsradar/internal/domain"
)

// FetchError reports a network, status, or decode failure while loading
// demo data.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("demo data from %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DefaultTimeout bounds the demo fetch so a hung resource cannot wedge
// the caller.
const DefaultTimeout = 15 * time.Second

// Fetch GETs the demo dataset and normalises each row through the same
// alias resolution uploads go through.
func Fetch(ctx context.Context, client *http.Client, url string) ([]domain.Record, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var rows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("decoding: %w", err)}
	}
	if len(rows) == 0 {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("resource is empty")}
	}

	records := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, normalizeRow(row))
	}
	return records, nil
}

// normalizeRow converts one decoded JSON object to a Record. Keys are
// visited in sorted order so alias collisions resolve deterministically.
func normalizeRow(row map[string]any) domain.Record {
	headers := make([]string, 0, len(row))
	values := make(map[string]string, len(row))
	for k, v := range row {
		headers = append(headers, k)
		values[k] = stringify(v)
	}
	sort.Strings(headers)
	return domain.FromFields(headers, values)
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		raw, _ := json.Marshal(x)
		return string(raw)
	}
}
