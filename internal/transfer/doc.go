// Package transfer implements validated, retryable repository ownership
// transfers between GitHub organizations.
//
// It defines the TransferRequest data model, the Validator that gates requests
// on identity, organization membership, and repository ownership, the Executor
// that performs the transfer call with bounded fixed-delay retry, and the
// Coordinator that drives batches with per-request failure isolation. CSV
// request ingestion, configuration, the event sink contract, and the cobra
// command builder live here as well; console rendering is provided by
// internal/ui.
package transfer
