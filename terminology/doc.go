// Package terminology provides ValueSet membership infrastructure:
// local membership tables built from R4 ValueSet resources, remote
// providers that call a terminology server's $validate-code operation,
// and a cached, request-coalescing lookup layer in front of them.
//
// Remote answers are cached with two TTLs: decided outcomes (valid or
// invalid) are kept for the configured TTL, while unknown outcomes are
// kept only briefly so a recovering server is retried soon.
package terminology
