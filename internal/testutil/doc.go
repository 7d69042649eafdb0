// Package testutil contains helper builders used across tests to reduce
// boilerplate when scripting agent payloads and asserting on event streams.
// These helpers are intentionally minimal and not intended for production
// usage.
package testutil
