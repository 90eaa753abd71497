package sources

import "fmt"

// Status classifies a lookup outcome.
type Status string

const (
	StatusSuccess      Status = "success"
	StatusNotFound     Status = "not_found"
	StatusAPIError     Status = "api_error"
	StatusNoIdentifier Status = "no_identifier"
	StatusRateLimited  Status = "rate_limited"
)

// LookupResult is what a client reports for one identifier. Count is -1 when
// no usable count was obtained; not_found carries 0.
type LookupResult struct {
	Count   int
	Status  Status
	Message string
}

// OK reports whether the result carries a usable count.
func (r LookupResult) OK() bool {
	return r.Status == StatusSuccess && r.Count >= 0
}

func success(count int) LookupResult {
	return LookupResult{Count: count, Status: StatusSuccess}
}

func notFound(message string) LookupResult {
	return LookupResult{Count: 0, Status: StatusNotFound, Message: message}
}

func apiError(message string) LookupResult {
	return LookupResult{Count: -1, Status: StatusAPIError, Message: message}
}

func rateLimited() LookupResult {
	return LookupResult{Count: -1, Status: StatusRateLimited, Message: "API rate limit exceeded"}
}

func noIdentifier() LookupResult {
	return LookupResult{Count: -1, Status: StatusNoIdentifier, Message: "No DOI or arXiv ID found"}
}

func statusError(status int) LookupResult {
	return apiError(fmt.Sprintf("API request failed with status %d", status))
}
