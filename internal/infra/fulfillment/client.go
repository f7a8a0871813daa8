package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds every outbound partner call. A hung partner
// endpoint becomes a transport failure eligible for retry instead of a
// stalled handler.
const DefaultTimeout = 15 * time.Second

// echoDollarValue converts spent echoes to dollars: one echo is one cent.
const echoDollarValue = 0.01

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// postJSON sends a bearer-authenticated JSON request and decodes the JSON
// response body. The response map is nil when the body is empty or not
// JSON; the status code is still reported in that case.
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, payload any) (int, map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		decoded = nil
	}
	return resp.StatusCode, decoded, nil
}

func getJSON(ctx context.Context, client *http.Client, url, apiKey string) (int, map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		decoded = nil
	}
	return resp.StatusCode, decoded, nil
}

func stringField(body map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := body[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func apiError(body map[string]any, status int) string {
	if msg := stringField(body, "error", "message"); msg != "" {
		return msg
	}
	return fmt.Sprintf("partner responded with status %d", status)
}

// numericValue extracts the first number out of a display value such as
// "20%", "$5", or "15.5% off".
func numericValue(s string) float64 {
	start := -1
	for i := 0; i < len(s); i++ {
		if (s[i] >= '0' && s[i] <= '9') || s[i] == '.' {
			start = i
			break
		}
	}
	if start < 0 {
		return 0
	}
	end := start
	for end < len(s) && ((s[end] >= '0' && s[end] <= '9') || s[end] == '.') {
		end++
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s[start:end], "."), 64)
	if err != nil {
		return 0
	}
	return f
}

func formatValue(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func roundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

func idSuffix(id string, n int) string {
	if len(id) > n {
		id = id[len(id)-n:]
	}
	return strings.ToUpper(id)
}
