// Package netio provides raw IP socket abstractions for OSPFv2 packet I/O
// (RFC 2328 Appendix A.1: protocol 89, AllSPFRouters/AllDRouters multicast).
//
// The Linux-specific implementation uses golang.org/x/sys/unix for socket
// option and ancillary-data (IP_PKTINFO) handling. internal/ospf never
// imports this package's types directly -- see Demuxer and Dispatcher for
// the stdlib-only boundary that avoids an import cycle.
package netio
