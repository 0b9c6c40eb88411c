// Package fetch performs the single upstream GET of a run.
//
// Every request carries a fixed User-Agent and an Accept header matching the expected
// content type, and is preceded by a fixed delay to stay under the upstream rate limit.
// There is no retry: a non-2xx status yields a *StatusError, a network failure a
// *TransportError, and recovery is left to the next scheduled invocation.
package fetch
