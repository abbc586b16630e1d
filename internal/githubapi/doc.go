// Package githubapi provides a thin typed adapter over the GitHub REST API
// endpoints used for repository transfers.
//
// The Client issues one HTTP call per method and surfaces the raw status code
// and body without interpreting non-2xx responses; only transport-level
// failures become errors, reported as TransportError values. Retry and
// validation logic live with the callers in internal/transfer.
package githubapi
