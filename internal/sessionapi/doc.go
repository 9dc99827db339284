// Package sessionapi exposes the session service over HTTP under /api/v1.
//
// Errors are returned as {"error": "..."} with these statuses:
//
//	404  unknown session
//	409  no current asset, or duplicate ledger entry under the reject policy
//	422  the photo could not be identified
//	400  empty input or image
//	415  identify body is not image/*
//	413  identify body larger than the configured limit
//	502  the model provider failed
package sessionapi
