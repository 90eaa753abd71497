// Package ignored remembers which (record, database) pairs should not be
// queried again yet.
//
// Two stores back the Ledger. The session quarantine (MemoryStore) holds pairs
// whose record lacked a usable identifier and is forgotten on restart. The
// durable store keeps "not found" answers in the ignoredItems preference as
//
//	{ "<database>": { "<recordID>": { "count": n, "lastChecked": "<RFC 3339>" } } }
//
// and releases a pair once enough time has passed for its failure count:
// one week after the first miss, then 30, 90 and finally 180 days.
package ignored
