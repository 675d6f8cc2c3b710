// Package server hosts the streaming gateway behind a single HTTP server.
//
// The server builds a consistent middleware chain of request IDs, logging,
// metrics, and admission control so the stream route shares common
// protections and instrumentation with the operational endpoints.
package server
