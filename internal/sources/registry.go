package sources

import (
	"log/slog"
	"net/http"
	"slices"

	"citetally/internal/config"
	"citetally/internal/extra"
	"citetally/internal/identifier"
	"citetally/internal/logging"
)

var displayNames = map[string]string{
	Crossref:        "Crossref",
	Inspire:         "INSPIRE",
	SemanticScholar: "Semantic Scholar",
}

// Names lists every supported database.
func Names() []string {
	return []string{Crossref, Inspire, SemanticScholar}
}

// Display returns the title used for database in tally lines. Unknown names
// are returned unchanged.
func Display(database string) string {
	if d, ok := displayNames[database]; ok {
		return d
	}
	return database
}

// Known reports whether database names a supported database.
func Known(database string) bool {
	_, ok := displayNames[database]
	return ok
}

// Applicable reports whether database can answer for id. Crossref has no
// records for DOIs minted by arXiv.
func Applicable(database string, id identifier.Identifier) bool {
	switch database {
	case Crossref:
		return id.Type == identifier.TypeDOI && !id.IsArxivDOI()
	case Inspire, SemanticScholar:
		return id.Type == identifier.TypeDOI || id.Type == identifier.TypeArxiv
	}
	return false
}

// ExtraDatabases maps names to the codec's name/title pairs.
func ExtraDatabases(names []string) []extra.Database {
	out := make([]extra.Database, 0, len(names))
	for _, name := range names {
		out = append(out, extra.Database{Name: name, Display: Display(name)})
	}
	return out
}

// Registry holds one client per database.
type Registry struct {
	clients map[string]Client
}

// NewRegistry builds clients from cfg. A nil doer uses an http.Client with
// the configured timeout.
func NewRegistry(cfg *config.Config, limiter Limiter, doer HTTPDoer, logger *slog.Logger) *Registry {
	if doer == nil {
		doer = &http.Client{Timeout: cfg.HTTPTimeout()}
	}
	t := transport{
		client:    doer,
		userAgent: cfg.Sources.UserAgent,
		logger:    logging.NewComponentLogger(logger, "sources"),
	}
	return NewRegistryFromClients(
		&CrossrefClient{
			BaseURL:    cfg.Sources.CrossrefBaseURL,
			DOIBaseURL: cfg.Sources.DOIBaseURL,
			Limiter:    limiter,
			transport:  t,
		},
		&InspireClient{
			BaseURL:   cfg.Sources.InspireBaseURL,
			Limiter:   limiter,
			transport: t,
		},
		&SemanticScholarClient{
			BaseURL:   cfg.Sources.SemanticScholarBaseURL,
			APIKey:    cfg.Sources.SemanticScholarAPIKey,
			Limiter:   limiter,
			transport: t,
		},
	)
}

// NewRegistryFromClients registers the given clients under their names.
func NewRegistryFromClients(clients ...Client) *Registry {
	r := &Registry{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		r.clients[c.Name()] = c
	}
	return r
}

// Lookup returns the client for database.
func (r *Registry) Lookup(database string) (Client, bool) {
	c, ok := r.clients[database]
	return c, ok
}

// Names lists the registered databases in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
