// Package asset is the triage core for Reclaim. It normalizes classifier output
// into Records, derives lifecycle figures, ranks records by urgency and keeps
// the per-session Ledger. Nothing here does I/O or holds package-level state.
package asset
