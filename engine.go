package plcpoll

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Configuration holds everything needed to start an Engine, following the
// teacher's no-global-defaults pattern: every field must be set (or left
// at its zero value, which NewEngine treats as "use the documented
// default") by the caller, and every Engine gets its own Logger rather
// than sharing a package-level one.
type Configuration struct {
	// Host and Port name the Modbus/TCP PLC to poll. Port defaults to
	// 502.
	Host string
	Port int

	// Rate is the target interval between the start of one poll cycle
	// and the next. Zero starts the engine paused; SetRate resumes it.
	Rate time.Duration

	// Timeout bounds each poll transaction (connect+send+recv) and,
	// unless WriteTimeout is set, each write transaction too.
	Timeout time.Duration

	// WriteTimeout bounds each write transaction. Zero means "use
	// Timeout".
	WriteTimeout time.Duration

	// MergeReach is the "reach" parameter of merge() (planner.go): two
	// tracked addresses within MergeReach of each other are read in the
	// same transaction. Zero means 1 (only strictly adjacent addresses
	// merge).
	MergeReach int

	// Logger receives the engine's log output. Defaults to a stdout
	// logger prefixed with the PLC's host:port if nil.
	Logger LeveledLogger
}

// pausedCheckInterval is how often a paused poller wakes up to check
// whether Rate has been set back to a positive value.
const pausedCheckInterval = 500 * time.Millisecond

// Status is a point-in-time snapshot of the poller's bookkeeping,
// exposed for operator visibility into per-range success/failure.
type Status struct {
	Online  bool
	Polling []uint32
	Failing []uint32
}

// Engine is a live, cached view of one PLC's register space (spec §2): a
// background poller keeps the cache current, while Read/Write serve
// consumers without making them wait on the wire.
type Engine struct {
	cfg    Configuration
	logger *logger

	transport *transport
	cache     *cache

	// mu serializes every use of transport: held across an entire
	// logical transaction (connect+execute+recv) but released between
	// ranges in the poll loop, so cache writes from one range can be
	// observed by a concurrent Read while the next range is still being
	// fetched.
	mu sync.Mutex

	rate atomic.Int64 // nanoseconds; <= 0 means paused

	online atomic.Bool
	status atomic.Pointer[Status]

	// prevPollingRanges/prevFailingRanges are touched only by the
	// poller goroutine, never concurrently, so they need no lock of
	// their own: ceasing/first-failure detection across cycles (spec
	// §4.E steps 5 and 2d).
	prevPollingRanges map[string]addrRange
	prevFailingRanges map[string]addrRange

	done     chan struct{}
	stopOnce sync.Once
}

// NewEngine builds an Engine and starts its background poller. The
// returned Engine polls nothing until the caller starts calling Poll.
func NewEngine(cfg Configuration) (*Engine, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("plcpoll: Host is required")
	}

	if cfg.Port <= 0 {
		cfg.Port = 502
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}

	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = cfg.Timeout
	}

	lg := newLogger(fmt.Sprintf("plcpoll(%s:%d)", cfg.Host, cfg.Port))

	e := &Engine{
		cfg:               cfg,
		logger:            lg,
		transport:         newTransport(cfg.Host, cfg.Port, cfg.Timeout, lg),
		cache:             newCache(),
		done:              make(chan struct{}),
		prevPollingRanges: make(map[string]addrRange),
		prevFailingRanges: make(map[string]addrRange),
	}

	if cfg.Logger != nil {
		e.logger.forward = cfg.Logger
	}

	e.status.Store(&Status{})
	e.rate.Store(int64(cfg.Rate))

	go e.pollLoop()

	return e, nil
}

// SetRate changes the target poll interval. d <= 0 pauses the poller:
// the next loop iteration sleeps pausedCheckInterval and checks again
// rather than spinning.
func (e *Engine) SetRate(d time.Duration) {
	e.rate.Store(int64(d))
}

// Poll registers address for background polling. It validates the
// address against the conventional bands but does not itself touch the
// wire; the next poll cycle picks it up. Idempotent.
func (e *Engine) Poll(address uint32) error {
	k, _, _, err := classify(address)
	if err != nil {
		return err
	}

	e.cache.track(address, k)

	return nil
}

// Read returns the last known value of a tracked address: a bool for
// Coil/Discrete Input addresses, a uint16 for Input/Holding Register
// addresses. It returns ErrNotPolled if the address has never been
// successfully polled, or if the latest poll of its range failed and
// evicted the value — the Go idiom for the source's "unknown"
// sentinel value, since Go has no natural third state for an interface
// return.
func (e *Engine) Read(address uint32) (interface{}, error) {
	k, _, _, err := classify(address)
	if err != nil {
		return nil, err
	}

	switch k {
	case kindCoil, kindDiscreteInput:
		v, ok := e.cache.readBool(address)
		if !ok {
			return nil, ErrNotPolled
		}
		return v, nil
	default:
		v, ok := e.cache.readUint16(address)
		if !ok {
			return nil, ErrNotPolled
		}
		return v, nil
	}
}

// Write performs one synchronous write transaction. value is a bool or
// []bool for a Coil address, or a uint16 or []uint16 for a Holding
// Register address. An address in a read-only band fails with
// ErrInvalidAddress; a value of any other type fails with a descriptive
// error, and an empty slice with ErrIllegalDataValue, both before any
// I/O. Unlike the poller, a connect failure here is
// reported immediately as ErrPlcOffline rather than recorded and
// retried on the next cycle. The cache is not updated directly; the
// next poll cycle observes the written value, avoiding a divergence
// between cache and device on a silently rejected write.
func (e *Engine) Write(address uint32, value interface{}) error {
	k, protoAddr, writable, err := classify(address)
	if err != nil {
		return err
	}

	if !writable {
		return ErrInvalidAddress
	}

	req, err := buildWriteRequest(k, protoAddr, value)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.transport.beginTransaction(e.cfg.WriteTimeout)
	defer e.transport.endTransaction()

	if !e.transport.connect() {
		return ErrPlcOffline
	}

	res, err := e.transport.executeRequest(req)
	if err != nil {
		return err
	}

	return parseWriteResponse(req, res)
}

// Online reports whether the most recent poll cycle considers the PLC
// reachable (spec §4.E).
func (e *Engine) Online() bool {
	return e.online.Load()
}

// Status returns a snapshot of the most recently completed cycle's
// per-address success/failure bookkeeping.
func (e *Engine) Status() Status {
	return *e.status.Load()
}

// Close stops the background poller. Idempotent; safe to call more than
// once.
func (e *Engine) Close() {
	e.stopOnce.Do(func() {
		close(e.done)
	})
}

// pollLoop is the poller of spec §4.E: it advances a target time by
// whole multiples of Rate (never "catching up" by looping tight after a
// slip), merges the tracked address set into a minimal set of
// transactions each cycle, and flips the online flag on the cache's
// transition between "has values" and "nothing polled successfully this
// cycle".
func (e *Engine) pollLoop() {
	target := time.Now()

	for {
		rate := time.Duration(e.rate.Load())

		if rate <= 0 {
			select {
			case <-time.After(pausedCheckInterval):
				target = time.Now()
				continue
			case <-e.done:
				return
			}
		}

		now := time.Now()
		if wait := target.Sub(now); wait > 0 {
			select {
			case <-time.After(wait):
			case <-e.done:
				return
			}
			now = time.Now()
		}

		slipped := int64(now.Sub(target) / rate)
		if slipped > 0 {
			e.logger.Warningf("poller missed %d cycle(s)", slipped)
		}
		target = target.Add(time.Duration(slipped+1) * rate)

		select {
		case <-e.done:
			return
		default:
		}

		e.runCycle()
	}
}

// runCycle executes one poll cycle (spec §4.E steps 3-7): merge the
// tracked key set, read each resulting range in its own transaction,
// update the cache, log range-level transitions, and update the online
// flag.
func (e *Engine) runCycle() {
	wasNonEmpty := e.cache.len() > 0

	ranges := merge(e.cache.keysSnapshot(), e.cfg.MergeReach, 0)

	succ := make(map[uint32]struct{})
	fail := make(map[uint32]struct{})
	pollingRanges := make(map[string]addrRange, len(ranges))
	failingRanges := make(map[string]addrRange)

	for _, r := range ranges {
		key := rangeKey(r)

		err := e.pollRange(r)
		if err != nil {
			for _, a := range rangeAddresses(r) {
				fail[a] = struct{}{}
			}

			if _, wasFailing := e.prevFailingRanges[key]; !wasFailing {
				e.logger.Warningf("%s %d-%d failed: %v", kindName(r.kind), r.address, r.address+uint32(r.count)-1, err)
			}

			failingRanges[key] = r
			e.cache.evict(r.address, r.count)

			continue
		}

		for _, a := range rangeAddresses(r) {
			succ[a] = struct{}{}
		}

		if _, wasPolling := e.prevPollingRanges[key]; !wasPolling {
			e.logger.Infof("now polling %d-%d", r.address, r.address+uint32(r.count)-1)
		}

		pollingRanges[key] = r
	}

	for key, r := range e.prevPollingRanges {
		if _, stillPolling := pollingRanges[key]; stillPolling {
			continue
		}
		if _, failed := failingRanges[key]; failed {
			continue
		}
		e.logger.Infof("no longer polling %d-%d", r.address, r.address+uint32(r.count)-1)
	}

	e.prevPollingRanges = pollingRanges
	e.prevFailingRanges = failingRanges

	if len(succ) > 0 {
		if !e.online.Load() {
			e.logger.Criticalf("plc %s:%d back online (%s)", e.cfg.Host, e.cfg.Port, e.cache.preview())
		}
		e.online.Store(true)
	} else if wasNonEmpty && e.online.Load() {
		e.logger.Criticalf("plc %s:%d offline: every range failed this cycle", e.cfg.Host, e.cfg.Port)
		e.online.Store(false)
	}

	e.status.Store(&Status{
		Online:  e.online.Load(),
		Polling: sortedKeys(succ),
		Failing: sortedKeys(fail),
	})
}

// rangeKey identifies a range by its start address and kind, stable
// across cycles even if its length changes slightly as neighboring
// addresses come and go.
func rangeKey(r addrRange) string {
	return fmt.Sprintf("%d:%d", r.kind, r.address)
}

func rangeAddresses(r addrRange) []uint32 {
	out := make([]uint32, r.count)
	for i := range out {
		out[i] = r.address + uint32(i)
	}
	return out
}

func sortedKeys(m map[uint32]struct{}) []uint32 {
	out := make([]uint32, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// pollRange runs one read transaction for r and, on success, stores its
// values in the cache.
func (e *Engine) pollRange(r addrRange) error {
	_, protoAddr, _, err := classify(r.address)
	if err != nil {
		return err
	}

	req := &pdu{
		unitID:       1,
		functionCode: readFunctionCode(r.kind),
		payload:      append(uint16ToBytes(protoAddr), uint16ToBytes(uint16(r.count))...),
	}

	e.mu.Lock()
	e.transport.beginTransaction(e.cfg.Timeout)
	var res *pdu
	if !e.transport.connect() {
		err = ErrPlcOffline
	} else {
		res, err = e.transport.executeRequest(req)
	}
	e.transport.endTransaction()
	e.mu.Unlock()

	if err != nil {
		return err
	}

	return e.storeReadResponse(r, res)
}

// storeReadResponse parses a read response against the request it
// answers and, on success, writes the decoded values into the cache.
func (e *Engine) storeReadResponse(r addrRange, res *pdu) error {
	if res.functionCode == (readFunctionCode(r.kind) | exceptionBit) {
		if len(res.payload) < 1 {
			return ErrProtocolError
		}
		return mapExceptionCode(res.payload[0])
	}

	if res.functionCode != readFunctionCode(r.kind) {
		return ErrProtocolError
	}

	if len(res.payload) < 1 {
		return ErrProtocolError
	}

	body := res.payload[1:]

	switch r.kind {
	case kindCoil, kindDiscreteInput:
		if len(body) < (r.count+7)/8 {
			return ErrProtocolError
		}
		values := decodeBools(uint16(r.count), body)
		e.cache.storeBools(r.kind, r.address, values)
	default:
		values := bytesToUint16s(body)
		if len(values) < r.count {
			return ErrProtocolError
		}
		e.cache.storeRegisters(r.kind, r.address, values[:r.count])
	}

	return nil
}

// buildWriteRequest assembles a write request for value, choosing the
// single-element opcode (0x05/0x06) for a scalar value and the
// multiple-element opcode (0x0f/0x10) for a slice.
func buildWriteRequest(k kind, protoAddr uint16, value interface{}) (*pdu, error) {
	switch k {
	case kindCoil:
		switch v := value.(type) {
		case bool:
			return &pdu{
				unitID:       1,
				functionCode: writeFunctionCode(k, true),
				payload:      append(uint16ToBytes(protoAddr), uint16ToBytes(coilWireValue(v))...),
			}, nil

		case []bool:
			if len(v) == 0 {
				return nil, ErrIllegalDataValue
			}

			packed := encodeBools(v)
			payload := append(uint16ToBytes(protoAddr), uint16ToBytes(uint16(len(v)))...)
			payload = append(payload, byte(len(packed)))
			payload = append(payload, packed...)

			return &pdu{
				unitID:       1,
				functionCode: writeFunctionCode(k, false),
				payload:      payload,
			}, nil

		default:
			return nil, fmt.Errorf("plcpoll: coil write requires a bool or []bool value, got %T", value)
		}

	case kindHoldingRegister:
		switch v := value.(type) {
		case uint16:
			return &pdu{
				unitID:       1,
				functionCode: writeFunctionCode(k, true),
				payload:      append(uint16ToBytes(protoAddr), uint16ToBytes(v)...),
			}, nil

		case []uint16:
			if len(v) == 0 {
				return nil, ErrIllegalDataValue
			}

			payload := append(uint16ToBytes(protoAddr), uint16ToBytes(uint16(len(v)))...)
			payload = append(payload, byte(len(v)*2))
			for _, reg := range v {
				payload = append(payload, uint16ToBytes(reg)...)
			}

			return &pdu{
				unitID:       1,
				functionCode: writeFunctionCode(k, false),
				payload:      payload,
			}, nil

		default:
			return nil, fmt.Errorf("plcpoll: register write requires a uint16 or []uint16 value, got %T", value)
		}

	default:
		return nil, ErrInvalidAddress
	}
}

func coilWireValue(v bool) uint16 {
	if v {
		return 0xff00
	}
	return 0x0000
}

// parseWriteResponse validates a write response against its request. A
// well-formed single-element write echoes the request's function code,
// address, and value verbatim; a multiple-element write echoes function
// code, address, and quantity (4 bytes), not the full payload.
func parseWriteResponse(req, res *pdu) error {
	if res.functionCode == (req.functionCode | exceptionBit) {
		if len(res.payload) < 1 {
			return ErrProtocolError
		}
		return mapExceptionCode(res.payload[0])
	}

	if res.functionCode != req.functionCode {
		return ErrProtocolError
	}

	switch req.functionCode {
	case fcWriteMultipleCoils, fcWriteMultipleRegisters:
		if len(res.payload) != 4 {
			return ErrProtocolError
		}
	default:
		if len(res.payload) != len(req.payload) {
			return ErrProtocolError
		}
	}

	return nil
}

func kindName(k kind) string {
	switch k {
	case kindCoil:
		return "coils"
	case kindDiscreteInput:
		return "discrete inputs"
	case kindInputRegister:
		return "input registers"
	default:
		return "holding registers"
	}
}
