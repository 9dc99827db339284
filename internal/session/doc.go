// Package session owns per-user state: the ledger of saved assets, the asset
// currently being looked at and the troubleshooting chat transcript. Each
// Session is an explicit value kept behind a Store; the Service serializes
// operations on one session and never mutates stored state when a model
// call fails.
package session
