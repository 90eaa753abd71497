package sources

import (
	"context"
	"net/http"
	"net/url"

	"citetally/internal/identifier"
	"citetally/internal/logging"
)

// Database names.
const (
	Crossref        = "crossref"
	Inspire         = "inspire"
	SemanticScholar = "semanticscholar"
)

const cslJSON = "application/vnd.citationstyles.csl+json"

// Client looks up citation counts in one database.
type Client interface {
	Name() string
	Lookup(ctx context.Context, id identifier.Identifier) LookupResult
}

func await(ctx context.Context, limiter Limiter, database string) (LookupResult, bool) {
	if err := limiter.Await(ctx, database); err != nil {
		return apiError(err.Error()), false
	}
	return LookupResult{}, true
}

// CrossrefClient queries the Crossref works API, falling back to DOI content
// negotiation when Crossref gives no usable response.
type CrossrefClient struct {
	BaseURL    string
	DOIBaseURL string
	Limiter    Limiter
	transport  transport
}

func (c *CrossrefClient) Name() string { return Crossref }

func (c *CrossrefClient) Lookup(ctx context.Context, id identifier.Identifier) LookupResult {
	if id.Type != identifier.TypeDOI || id.ID == "" {
		return noIdentifier()
	}
	if res, ok := await(ctx, c.Limiter, Crossref); !ok {
		return res
	}

	edoi := url.PathEscape(id.ID)
	primary, err := c.transport.get(ctx, Crossref, c.BaseURL+"/works/"+edoi+"/transform/"+cslJSON, nil)
	if err == nil && primary.Status == http.StatusTooManyRequests {
		c.Limiter.OnRateLimited(Crossref)
		return rateLimited()
	}
	if err == nil && primary.Status < http.StatusMultipleChoices && primary.Decoded {
		return classifyCount(c.Limiter, Crossref, primary.Body, "is-referenced-by-count")
	}
	if ctx.Err() != nil {
		return apiError(ctx.Err().Error())
	}

	c.transport.logger.Debug("crossref lookup failed; trying doi.org",
		logging.String(logging.FieldDatabase, Crossref),
		logging.Int("status", primary.Status),
	)
	if res, ok := await(ctx, c.Limiter, Crossref); !ok {
		return res
	}
	fallback, err := c.transport.get(ctx, Crossref, c.DOIBaseURL+"/"+edoi, map[string]string{"Accept": cslJSON})
	if err != nil {
		return apiError(err.Error())
	}
	if res, handled := classifyStatus(c.Limiter, Crossref, fallback.Status, "DOI not found in Crossref"); handled {
		return res
	}
	if fallback.Status >= http.StatusMultipleChoices {
		return statusError(fallback.Status)
	}
	if !fallback.Decoded {
		return apiError("API requests failed")
	}
	return classifyCount(c.Limiter, Crossref, fallback.Body, "is-referenced-by-count")
}

// InspireClient queries the INSPIRE-HEP literature API by DOI or arXiv id.
type InspireClient struct {
	BaseURL   string
	Limiter   Limiter
	transport transport
}

func (c *InspireClient) Name() string { return Inspire }

func (c *InspireClient) Lookup(ctx context.Context, id identifier.Identifier) LookupResult {
	var kind string
	switch id.Type {
	case identifier.TypeDOI:
		kind = "dois"
	case identifier.TypeArxiv:
		kind = "arxiv"
	default:
		return noIdentifier()
	}
	if id.ID == "" {
		return noIdentifier()
	}
	if res, ok := await(ctx, c.Limiter, Inspire); !ok {
		return res
	}

	resp, err := c.transport.get(ctx, Inspire, c.BaseURL+"/"+kind+"/"+escapeSegments(id.ID), nil)
	if err != nil {
		return apiError(err.Error())
	}
	if res, handled := classifyStatus(c.Limiter, Inspire, resp.Status, "Item not found in INSPIRE"); handled {
		return res
	}
	if resp.Status >= http.StatusMultipleChoices {
		return statusError(resp.Status)
	}
	if !resp.Decoded {
		return apiError("API request failed")
	}
	return classifyCount(c.Limiter, Inspire, resp.Body, "metadata", "citation_count")
}

// SemanticScholarClient queries the Semantic Scholar graph API.
type SemanticScholarClient struct {
	BaseURL   string
	APIKey    string
	Limiter   Limiter
	transport transport
}

func (c *SemanticScholarClient) Name() string { return SemanticScholar }

func (c *SemanticScholarClient) Lookup(ctx context.Context, id identifier.Identifier) LookupResult {
	var prefix string
	switch id.Type {
	case identifier.TypeDOI:
	case identifier.TypeArxiv:
		prefix = "arXiv:"
	default:
		return noIdentifier()
	}
	if id.ID == "" {
		return noIdentifier()
	}
	if res, ok := await(ctx, c.Limiter, SemanticScholar); !ok {
		return res
	}

	var headers map[string]string
	if c.APIKey != "" {
		headers = map[string]string{"x-api-key": c.APIKey}
	}
	target := c.BaseURL + "/paper/" + prefix + escapeSegments(id.ID) + "?fields=citationCount"
	resp, err := c.transport.get(ctx, SemanticScholar, target, headers)
	if err != nil {
		return apiError(err.Error())
	}
	if res, handled := classifyStatus(c.Limiter, SemanticScholar, resp.Status, "Item not found in Semantic Scholar"); handled {
		return res
	}
	if resp.Status >= http.StatusMultipleChoices {
		return statusError(resp.Status)
	}
	if !resp.Decoded {
		return apiError("API request failed")
	}
	return classifyCount(c.Limiter, SemanticScholar, resp.Body, "citationCount")
}
