// Package fetch holds the network-facing contracts the core consumes: the
// page fetcher, the embedded-asset extractor, and the HTTP implementations
// of both.
//
// The core treats non-2xx responses and network timeouts uniformly as a
// *FetchError and never assumes the fetcher retries anything itself;
// retry policy lives in the download scheduler.
package fetch
