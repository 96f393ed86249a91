package plcpoll

import (
	"net"
	"time"
)

// socketWrapper adapts a net.Conn to the narrow interface the transport
// needs. Kept as its own type (rather than using net.Conn directly)
// because the strict-timeout transport below cares only about
// Read/Write/Close/SetDeadline.
type socketWrapper struct {
	socket net.Conn
}

func newSocketWrapper(s net.Conn) (sw *socketWrapper) {
	sw = &socketWrapper{
		socket: s,
	}

	return
}

// Close closes the underlying connection.
func (sw *socketWrapper) Close() (err error) {
	err = sw.socket.Close()

	return
}

func (sw *socketWrapper) Read(rxbuf []byte) (cnt int, err error) {
	cnt, err = sw.socket.Read(rxbuf)

	return
}

func (sw *socketWrapper) Write(txbuf []byte) (cnt int, err error) {
	cnt, err = sw.socket.Write(txbuf)

	return
}

// SetDeadline saves the i/o deadline, governing both the next Read and the
// next Write.
func (sw *socketWrapper) SetDeadline(deadline time.Time) (err error) {
	err = sw.socket.SetDeadline(deadline)

	return
}
