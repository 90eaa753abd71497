package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"citetally/internal/logging"
)

const maxBodyBytes = 4 << 20

// HTTPDoer describes the HTTP client used by the lookup clients.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Limiter gates requests per database.
type Limiter interface {
	Await(ctx context.Context, database string) error
	OnRateLimited(database string)
	OnSuccess(database string)
}

type transport struct {
	client    HTTPDoer
	userAgent string
	logger    *slog.Logger
}

// response is a fetched body. Decoded is false when the body was not JSON or
// was the JSON null literal.
type response struct {
	Status  int
	Body    map[string]any
	Decoded bool
}

func (t transport) get(ctx context.Context, database, target string, headers map[string]string) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return response{}, fmt.Errorf("build %s request: %w", database, err)
	}
	req.Header.Set("Accept", "application/json")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	t.logger.Debug("citation lookup request",
		logging.String(logging.FieldDatabase, database),
		logging.String("url", target),
	)
	resp, err := t.client.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("%s request: %w", database, err)
	}
	defer resp.Body.Close()

	out := response{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return out, fmt.Errorf("read %s response: %w", database, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return out, nil
	}
	if body == nil {
		return out, nil
	}
	out.Decoded = true
	if obj, ok := body.(map[string]any); ok {
		out.Body = obj
	} else {
		out.Body = map[string]any{}
	}
	return out, nil
}

// countField walks path through nested objects. found is false when any key
// along the way is missing.
func countField(body map[string]any, path ...string) (value any, found bool) {
	var cur any = body
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// classifyCount turns a decoded body into a result and informs limiter.
func classifyCount(limiter Limiter, database string, body map[string]any, path ...string) LookupResult {
	raw, found := countField(body, path...)
	if !found {
		return notFound("No citation count field in response")
	}
	var (
		n   int64
		err error
	)
	switch v := raw.(type) {
	case json.Number:
		n, err = strconv.ParseInt(v.String(), 10, 64)
		if err != nil {
			var f float64
			f, err = v.Float64()
			n = int64(f)
		}
	case string:
		n, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return apiError("Invalid response format")
	}
	if err != nil || n < 0 {
		return apiError("Invalid response format")
	}
	limiter.OnSuccess(database)
	return success(int(n))
}

// classifyStatus handles the status codes shared by every client. handled is
// false when the body should be inspected.
func classifyStatus(limiter Limiter, database string, status int, notFoundMessage string) (LookupResult, bool) {
	switch status {
	case http.StatusNotFound:
		return notFound(notFoundMessage), true
	case http.StatusTooManyRequests:
		limiter.OnRateLimited(database)
		return rateLimited(), true
	}
	return LookupResult{}, false
}

func escapeSegments(id string) string {
	parts := strings.Split(id, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
