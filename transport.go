package plcpoll

import (
	"net"
	"strconv"
	"sync"
	"time"
)

// txnTimeout implements a transaction-scoped deadline: begin(d) starts a
// budget at "now"; remaining() always returns what's left of it, clamped
// to zero, until end() reverts to the configured per-I/O default.
type txnTimeout struct {
	mu            sync.Mutex
	started       time.Time
	budget        time.Duration
	active        bool
	defaultBudget time.Duration
}

func newTxnTimeout(defaultBudget time.Duration) *txnTimeout {
	return &txnTimeout{defaultBudget: defaultBudget}
}

// begin starts a hard transaction-scoped deadline. A zero duration means
// "use the configured default".
func (t *txnTimeout) begin(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if d <= 0 {
		d = t.defaultBudget
	}
	t.started = time.Now()
	t.budget = d
	t.active = true
}

// end reverts to per-I/O default timeout behaviour.
func (t *txnTimeout) end() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active = false
}

// remaining returns the time left in the current transaction budget, or
// the configured default if no transaction is active.
func (t *txnTimeout) remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return t.defaultBudget
	}

	left := t.budget - time.Since(t.started)
	if left < 0 {
		return 0
	}

	return left
}

// transport is the strict-timeout transaction layer: a lazy TCP
// connection plus a transaction-scoped deadline, closed on any error or
// timeout and reopened on the next transaction. It assumes a
// single-threaded caller within one transaction; Engine enforces that
// with its own mutex, so transport itself holds none.
type transport struct {
	host   string
	port   int
	logger *logger

	timeout *txnTimeout

	sock      *socketWrapper
	lastTxnID uint16
}

func newTransport(host string, port int, defaultTimeout time.Duration, logger *logger) *transport {
	return &transport{
		host:    host,
		port:    port,
		logger:  logger,
		timeout: newTxnTimeout(defaultTimeout),
	}
}

// beginTransaction opens a transaction-scoped deadline spanning the
// connect/send/receive that follow. d == 0 uses the configured default.
func (tr *transport) beginTransaction(d time.Duration) {
	tr.timeout.begin(d)
}

// endTransaction reverts to per-I/O default timeout behaviour.
func (tr *transport) endTransaction() {
	tr.timeout.end()
}

// connected reports whether a socket is currently open.
func (tr *transport) connected() bool {
	return tr.sock != nil
}

// connect dials the remote host if not already connected. Connect time
// counts against the current transaction's budget.
func (tr *transport) connect() bool {
	if tr.sock != nil {
		return true
	}

	addr := net.JoinHostPort(tr.host, strconv.Itoa(tr.port))

	conn, err := net.DialTimeout("tcp", addr, tr.timeout.remaining())
	if err != nil {
		tr.logger.Warningf("connect to %s failed: %v", addr, err)
		return false
	}

	tr.sock = newSocketWrapper(conn)

	return true
}

// close tears down the current connection, if any. Called on any
// transport error or timeout so the next transaction starts fresh.
func (tr *transport) close() {
	if tr.sock == nil {
		return
	}

	tr.sock.Close()
	tr.sock = nil
}

// executeRequest sends req and waits for the matching response, both
// bounded by the transaction's remaining budget. Stray frames bearing a
// stale transaction id (a late response to a request this transaction
// already timed out waiting for) are discarded rather than misdelivered.
func (tr *transport) executeRequest(req *pdu) (*pdu, error) {
	if tr.sock == nil {
		return nil, ErrPlcOffline
	}

	tr.lastTxnID++
	txnID := tr.lastTxnID

	if err := tr.sock.SetDeadline(time.Now().Add(tr.timeout.remaining())); err != nil {
		tr.close()
		return nil, err
	}

	if _, err := tr.sock.Write(assembleMBAPFrame(txnID, req)); err != nil {
		tr.close()
		return nil, classifyIOError(err)
	}

	for {
		if err := tr.sock.SetDeadline(time.Now().Add(tr.timeout.remaining())); err != nil {
			tr.close()
			return nil, err
		}

		res, gotTxnID, err := readMBAPFrame(tr.sock)
		if err != nil {
			tr.close()
			return nil, classifyIOError(err)
		}

		if gotTxnID != txnID {
			tr.logger.Warningf(
				"discarding frame with stale transaction id (expected 0x%04x, got 0x%04x)",
				txnID, gotTxnID)
			continue
		}

		return res, nil
	}
}

// classifyIOError maps a socket read/write timeout to the engine's own
// transaction-timeout sentinel, leaving every other I/O error as-is.
func classifyIOError(err error) error {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return ErrTransactionTimeout
	}

	return err
}
