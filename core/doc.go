// Package core defines the shared vocabulary of the pipeline: sessions,
// contributions, the ordered event log, the error taxonomy and the
// interfaces to external collaborators (retrieval, rate budget).
//
// Everything here is transport agnostic. The coordinator package drives
// these types; the agent package produces Contributions; consumers observe
// a session purely through its EventLog.
package core
