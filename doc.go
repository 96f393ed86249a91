// Package plcpoll implements a Modbus/TCP polling engine for PLC
// supervision: a live, cached view of a remote device's register space,
// kept current by a background poller that coalesces scattered addresses
// into a minimal set of multi-register transactions, interleaved with
// synchronous writes on the same connection.
package plcpoll
