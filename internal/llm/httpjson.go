package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxErrorBody bounds how much of an unparseable vendor body ends up in an error
const maxErrorBody = 300

// vendorCall describes one JSON POST to a vendor REST endpoint
type vendorCall struct {
	vendor   string // Display name used in error messages
	endpoint string
	header   http.Header
	// errorMessage extracts the vendor's error text from a non-200 body; "" means unknown
	errorMessage func(body []byte) string
}

// postJSON sends in as JSON and decodes a 200 response into out.
// Transport errors never include the request URL, which may carry a key.
func postJSON(ctx context.Context, client *http.Client, call vendorCall, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", redactURL(err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range call.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", call.vendor, redactURL(err))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if call.errorMessage != nil {
			if msg := call.errorMessage(raw); msg != "" {
				return fmt.Errorf("%s %d: %s", call.vendor, resp.StatusCode, msg)
			}
		}
		return fmt.Errorf("%s %d: %s", call.vendor, resp.StatusCode, truncate(string(raw), maxErrorBody))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s parse error: %s", call.vendor, truncate(string(raw), maxErrorBody))
	}
	return nil
}

// redactURL drops the request URL from transport errors
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
