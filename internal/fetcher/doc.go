// Package fetcher issues rate-limited GET requests against the source site and
// returns parsed HTML documents.
//
// Every request is preceded by a fixed delay, including requests that end up
// failing, so a sequence of fetches never exceeds one request per delay window.
// There are no retries: a failed fetch is reported as a *FetchError and the caller
// decides whether to try again on a later cycle.
package fetcher
