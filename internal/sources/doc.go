// Package sources implements the citation database lookup clients.
//
// Each client turns an identifier into a LookupResult. Clients wait for
// admission from a Limiter before every request and report 429 responses and
// successful lookups back to it so request spacing adapts per database.
// Failures never surface as Go errors; they are folded into the result status.
package sources
