// Package ospf implements the OSPFv2 link-state interior gateway routing
// protocol (RFC 2328) for IPv4.
//
// It covers the four interlocked subsystems that make up the protocol
// engine: the per-interface state machine (ISM, RFC 2328 Section 9), the
// per-neighbor state machine (NSM, Section 10), the link-state database
// with reliable flooding (Sections 12-13), and SPF route computation with
// area-border summary export (Sections 11, 16).
//
// The engine is single-threaded and cooperative: every exported method
// that mutates protocol state is called from the event loop in
// internal/sched, never from a background goroutine. Packet I/O,
// configuration, and metrics are external collaborators injected into
// Router at construction time.
package ospf
