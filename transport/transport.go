package transport

import (
	"bufio"
	"io"
	"sync"

	"github.com/tarm/serial"

	"prusammu/common/logger"
	"prusammu/common/sys"
	"prusammu/mmu"
)

// QueuingHook runs once per outbound command, right before it would be
// written, and decides what actually goes on the wire.
type QueuingHook func(cmd mmu.Command) mmu.Decision

// ReceivedHook observes every inbound firmware line. The returned line is
// what gets logged downstream; hooks are observational and normally return
// the line unchanged.
type ReceivedHook func(line string) string

// Link drives one printer connection: a writer goroutine drains the outbound
// queue (pausing while the job hold is set) and a reader goroutine delivers
// firmware lines. The underlying stream is a serial port in production and an
// in-memory pipe in tests.
type Link struct {
	rw io.ReadWriteCloser

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []mmu.Command
	held   bool
	closed bool

	queuingHook  QueuingHook
	receivedHook ReceivedHook

	wg sync.WaitGroup
}

// Open connects to the printer over a serial device.
func Open(device string, baud int) (*Link, error) {
	port, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud})
	if err != nil {
		return nil, err
	}
	logger.Infof("serial link open: %s @ %d", device, baud)
	return New(port), nil
}

// New wraps an already-open stream.
func New(rw io.ReadWriteCloser) *Link {
	l := &Link{rw: rw}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *Link) SetQueuingHook(hook QueuingHook)   { l.queuingHook = hook }
func (l *Link) SetReceivedHook(hook ReceivedHook) { l.receivedHook = hook }

// Start launches the reader and writer goroutines. Hooks must be set before
// Start.
func (l *Link) Start() {
	l.wg.Add(2)
	go func() {
		defer l.wg.Done()
		defer sys.CatchPanic()
		l.writer()
	}()
	go func() {
		defer l.wg.Done()
		defer sys.CatchPanic()
		l.reader()
	}()
}

// SendCommand enqueues one command for the printer. It never blocks: commands
// queued while the hold is set are written once the hold is released.
func (l *Link) SendCommand(cmd mmu.Command) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.queue = append(l.queue, cmd)
	l.cond.Broadcast()
}

// SetJobOnHold pauses or resumes the outbound stream. Acquiring is a
// compare-and-set: it fails when the stream is already held, which is how at
// most one prompt can be in flight.
func (l *Link) SetJobOnHold(on bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if on && l.held {
		return false
	}
	l.held = on
	if !on {
		l.cond.Broadcast()
	}
	return true
}

func (l *Link) Close() error {
	l.mu.Lock()
	l.closed = true
	l.cond.Broadcast()
	l.mu.Unlock()

	err := l.rw.Close()
	l.wg.Wait()
	return err
}

func (l *Link) writer() {
	for {
		l.mu.Lock()
		for (len(l.queue) == 0 || l.held) && !l.closed {
			l.cond.Wait()
		}
		if l.closed {
			l.mu.Unlock()
			return
		}
		cmd := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		// The hook may take the hold itself (prompt open); it runs outside
		// the lock so that is not a self-deadlock.
		decision := mmu.Decision{Action: mmu.ActionPass}
		if l.queuingHook != nil {
			decision = l.queuingHook(cmd)
		}
		for _, out := range decision.Apply(cmd) {
			if err := l.write(out.Text); err != nil {
				logger.Errorf("serial write %q: %v", out.Text, err)
				return
			}
		}
	}
}

func (l *Link) write(text string) error {
	logger.Debugf("> %s", text)
	_, err := l.rw.Write([]byte(text + "\n"))
	return err
}

func (l *Link) reader() {
	scanner := bufio.NewScanner(l.rw)
	for scanner.Scan() {
		line := scanner.Text()
		if l.receivedHook != nil {
			line = l.receivedHook(line)
		}
		logger.Debugf("< %s", line)
	}
	if err := scanner.Err(); err != nil {
		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if !closed {
			logger.Errorf("serial read: %v", err)
		}
	}
}
