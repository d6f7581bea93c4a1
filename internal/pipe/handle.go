package pipe

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// resource is the shared OS connection behind one or more Handles. The
// reference count mirrors OS-level handle duplication: the connection is
// released only when the last Handle referencing it closes.
type resource struct {
	conn net.Conn
	refs atomic.Int32
}

func (r *resource) retain() { r.refs.Add(1) }

func (r *resource) release() error {
	if r.refs.Add(-1) == 0 {
		return r.conn.Close()
	}
	return nil
}

// Handle wraps one reference to an OS pipe connection. Duplicate produces
// an independent Handle over the same resource; each Handle is separately
// closable and tracks its own validity, so a logical endpoint always has
// single, clear ownership of its Handle value even when several Handles
// share one connection.
type Handle struct {
	mu    sync.Mutex
	res   *resource
	valid bool

	// readInterrupted and writeInterrupted are set by CancelPending so
	// the waiter can tell an external interruption apart from a genuine
	// transport timeout. One flag per direction: a concurrent pending
	// read and write must each observe the interruption.
	readInterrupted  atomic.Bool
	writeInterrupted atomic.Bool
}

func newHandle(conn net.Conn) *Handle {
	res := &resource{conn: conn}
	res.retain()
	return &Handle{res: res, valid: true}
}

// Valid reports whether the Handle is open.
func (h *Handle) Valid() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.valid
}

// Duplicate returns a second Handle referencing the same connection. The
// connection stays open until every referencing Handle is closed.
func (h *Handle) Duplicate() (*Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.valid {
		return nil, fmt.Errorf("duplicate: %w", ErrDisposed)
	}
	h.res.retain()
	return &Handle{res: h.res, valid: true}, nil
}

// Close invalidates the Handle and releases the connection if this was
// the last reference. Closing twice fails with ErrDisposed.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.valid {
		return fmt.Errorf("close: %w", ErrDisposed)
	}
	h.valid = false
	return h.res.release()
}

func (h *Handle) connection() (net.Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.valid {
		return nil, ErrDisposed
	}
	return h.res.conn, nil
}

// Read transfers bytes from the connection. Raw transport errors are
// returned unmapped; the owning endpoint applies its disconnect policy.
func (h *Handle) Read(p []byte) (int, error) {
	conn, err := h.connection()
	if err != nil {
		return 0, err
	}
	return conn.Read(p)
}

// Write transfers bytes to the connection.
func (h *Handle) Write(p []byte) (int, error) {
	conn, err := h.connection()
	if err != nil {
		return 0, err
	}
	return conn.Write(p)
}

// CancelPending interrupts any pending read or write on the connection
// from outside the operation's own cancellation token. The interruption
// surfaces to the pending operation through the ordinary error channel
// (a deadline expiry); the waiter reclassifies it per its token state.
func (h *Handle) CancelPending() {
	h.mu.Lock()
	conn := h.res.conn
	valid := h.valid
	h.mu.Unlock()
	if !valid {
		return
	}
	h.readInterrupted.Store(true)
	h.writeInterrupted.Store(true)
	_ = conn.SetDeadline(time.Now())
}

// armRead clears any stale read deadline before a blocking read starts.
func (h *Handle) armRead() {
	if conn, err := h.connection(); err == nil {
		_ = conn.SetReadDeadline(time.Time{})
	}
}

// armWrite clears any stale write deadline before a blocking write starts.
func (h *Handle) armWrite() {
	if conn, err := h.connection(); err == nil {
		_ = conn.SetWriteDeadline(time.Time{})
	}
}

// interruptRead unwinds a pending read without touching a concurrent
// pending write.
func (h *Handle) interruptRead() {
	if conn, err := h.connection(); err == nil {
		_ = conn.SetReadDeadline(time.Now())
	}
}

// interruptWrite unwinds a pending write without touching a concurrent
// pending read.
func (h *Handle) interruptWrite() {
	if conn, err := h.connection(); err == nil {
		_ = conn.SetWriteDeadline(time.Now())
	}
}

// consumeReadInterrupt reports and clears the read-side
// external-interruption flag.
func (h *Handle) consumeReadInterrupt() bool {
	return h.readInterrupted.Swap(false)
}

// consumeWriteInterrupt reports and clears the write-side
// external-interruption flag.
func (h *Handle) consumeWriteInterrupt() bool {
	return h.writeInterrupted.Swap(false)
}
