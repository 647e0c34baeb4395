package telnet

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Interpreter is the engine's façade: a push-based Telnet negotiation
// session with no transport of its own. An adapter feeds it inbound bytes
// via Interpret and receives outbound bytes via EventHooks.OnNegotiation;
// everything between- framing, Q-method negotiation, charset translation,
// compression- happens inside.
//
// Inbound bytes are processed by a single cooperative worker goroutine
// (§5): Interpret only enqueues, so callers never block on protocol work,
// and WaitForProcessing lets a caller (typically a test) synchronize on the
// queue draining before inspecting state.
type Interpreter struct {
	side    TerminalSide
	logger  *slog.Logger
	hooks   EventHooks
	charset *Charset
	plugins *pluginManager
	framer  *framer

	mu         sync.Mutex
	cond       *sync.Cond
	pending    *queue[byte]
	processing bool
	closed     bool
	workerDone chan struct{}

	inbound *mccpInbound

	outMu    sync.Mutex
	outbound *mccpOutbound

	lockMu sync.Mutex
	locks  map[string]time.Time
}

func newInterpreter(side TerminalSide, charset *Charset, plugins *pluginManager, hooks EventHooks, logger *slog.Logger) *Interpreter {
	i := &Interpreter{
		side:       side,
		logger:     logger,
		hooks:      hooks,
		charset:    charset,
		plugins:    plugins,
		pending:    newQueue[byte](256),
		workerDone: make(chan struct{}),
		locks:      make(map[string]time.Time),
	}
	i.cond = sync.NewCond(&i.mu)
	i.framer = &framer{
		state:            frameData,
		onByte:           i.handleByte,
		onLine:           i.handleLine,
		onCommand:        i.handleCommand,
		onSubnegotiation: i.handleSubnegotiation,
		onProtocolError:  i.handleProtocolError,
	}

	go i.workerLoop()

	return i
}

// Side reports whether this interpreter is playing the client or server
// role, relevant to option modules (CHARSET, MSSP) whose behavior differs
// by side.
func (i *Interpreter) Side() TerminalSide { return i.side }

// Charset returns the encoding state shared by every option module and the
// line-submission path.
func (i *Interpreter) Charset() *Charset { return i.charset }

// Logger returns the structured logger this interpreter was built with.
func (i *Interpreter) Logger() *slog.Logger { return i.logger }

// Interpret feeds raw inbound bytes- exactly as read off the wire- into the
// interpreter. It never blocks on protocol processing; bytes are queued for
// the cooperative worker and Interpret returns immediately.
func (i *Interpreter) Interpret(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return ErrPostDisposalUse
	}
	inbound := i.inbound
	i.mu.Unlock()

	if inbound != nil {
		inbound.write(data)
		return nil
	}

	i.enqueuePending(data)
	return nil
}

func (i *Interpreter) enqueuePending(data []byte) {
	i.mu.Lock()
	i.pending.Queue(data...)
	i.cond.Broadcast()
	i.mu.Unlock()
}

func (i *Interpreter) workerLoop() {
	defer close(i.workerDone)

	i.mu.Lock()
	defer i.mu.Unlock()

	for {
		for i.pending.Len() == 0 && !i.closed {
			i.processing = false
			i.cond.Broadcast()
			i.cond.Wait()
		}

		if i.pending.Len() == 0 && i.closed {
			return
		}

		batch := append([]byte(nil), i.pending.Buffer()...)
		i.pending.DropElements(len(batch))
		i.processing = true

		i.mu.Unlock()
		for _, b := range batch {
			i.framer.Step(b)
		}
		i.mu.Lock()
	}
}

// WaitForProcessing blocks until every byte queued so far has been run
// through the framer and its side effects delivered. Intended for tests and
// for adapters that need a synchronization point, e.g. before reading back
// negotiated state right after a handshake.
func (i *Interpreter) WaitForProcessing() {
	i.mu.Lock()
	defer i.mu.Unlock()

	for i.processing || i.pending.Len() > 0 {
		i.cond.Wait()
	}
}

// Dispose stops the worker and releases the interpreter. Any later call to
// Interpret returns ErrPostDisposalUse.
func (i *Interpreter) Dispose() {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.closed = true
	i.cond.Broadcast()
	i.mu.Unlock()

	<-i.workerDone

	i.mu.Lock()
	inbound := i.inbound
	i.inbound = nil
	i.mu.Unlock()
	if inbound != nil {
		inbound.stop()
	}
}

// WriteCommand serializes a Telnet command and hands it to
// EventHooks.OnNegotiation, compressing first if outbound MCCP is active.
// Option modules call this to send their negotiation replies and
// subnegotiations; it is also how the plugin manager sends the initial
// offers and Q-method replies.
func (i *Interpreter) WriteCommand(c Command) error {
	return i.writeOut(serializeCommand(c))
}

// SubmitOutbound encodes a line of application text under the interpreter's
// current encoding and writes it to the peer.
func (i *Interpreter) SubmitOutbound(text string) error {
	encoded, err := i.charset.Encode(text)
	if err != nil {
		return fmt.Errorf("telnet: encoding outbound text: %w", err)
	}
	return i.writeOut(encoded)
}

func (i *Interpreter) writeOut(raw []byte) error {
	i.outMu.Lock()
	outbound := i.outbound
	i.outMu.Unlock()

	if outbound != nil {
		compressed, err := outbound.compress(raw)
		if err != nil {
			return fmt.Errorf("%w: compressing outbound data: %v", ErrProtocolViolation, err)
		}
		raw = compressed
	}

	if i.hooks.OnNegotiation != nil {
		i.safeCall(func() { i.hooks.OnNegotiation(i, raw) })
	}
	return nil
}

// SendGMCP writes a GMCP (package, message) pair as an SB GMCP ... SE
// subnegotiation (§4.4.5). It returns an error wrapping ErrUnsupportedOption
// if no GMCP plugin is registered, and an error if the option hasn't been
// activated on either half-channel.
func (i *Interpreter) SendGMCP(packageName, message string) error {
	opt, ok := GetTelOpt[gmcpCarrier](i)
	if !ok {
		return fmt.Errorf("%w: no GMCP option registered", ErrUnsupportedOption)
	}
	return opt.SendMessage(i, packageName, message)
}

// SendNAWS reports a new local terminal size to the peer (§4.4.1). It
// returns an error wrapping ErrUnsupportedOption if no NAWS plugin is
// registered.
func (i *Interpreter) SendNAWS(width, height int) error {
	opt, ok := GetTelOpt[nawsCarrier](i)
	if !ok {
		return fmt.Errorf("%w: no NAWS option registered", ErrUnsupportedOption)
	}
	opt.SetLocalSize(i, width, height)
	return nil
}

// gmcpCarrier and nawsCarrier are the minimal interfaces SendGMCP/SendNAWS
// need from their respective option modules, satisfied by the telopts
// package's GMCP and NAWS plugins. The methods are exported because plugin
// types live in a different package (telopts) and can't satisfy an
// unexported interface method declared here.
type gmcpCarrier interface {
	TelnetOption
	SendMessage(i *Interpreter, packageName, message string) error
}

type nawsCarrier interface {
	TelnetOption
	SetLocalSize(i *Interpreter, width, height int)
}

// SetPriorityLock marks a named local negotiation as in-flight for
// duration, so a concurrently-arriving peer negotiation for the same
// concern can be told to defer. CHARSET uses this to give a
// locally-initiated request priority over one that arrives from the peer
// at nearly the same time (§4.2 CHARSET). Adapted from the teacher's
// keyboard lock without its timer/channel machinery, since nothing here
// needs to be woken on expiry- HasPriorityLock just compares against now.
func (i *Interpreter) SetPriorityLock(name string, duration time.Duration) {
	i.lockMu.Lock()
	defer i.lockMu.Unlock()
	i.locks[name] = time.Now().Add(duration)
}

// ClearPriorityLock ends a named lock early, e.g. once its negotiation
// resolves.
func (i *Interpreter) ClearPriorityLock(name string) {
	i.lockMu.Lock()
	defer i.lockMu.Unlock()
	delete(i.locks, name)
}

// HasPriorityLock reports whether the named lock is currently active.
func (i *Interpreter) HasPriorityLock(name string) bool {
	i.lockMu.Lock()
	defer i.lockMu.Unlock()
	expiry, ok := i.locks[name]
	return ok && time.Now().Before(expiry)
}

func (i *Interpreter) handleByte(b byte) {
	if i.hooks.OnByte != nil {
		encodingName := i.charset.DecodingName()
		i.safeCall(func() { i.hooks.OnByte(i, b, encodingName) })
	}
}

func (i *Interpreter) handleLine(line []byte) {
	if i.hooks.OnSubmit == nil {
		return
	}

	encodingName := i.charset.DecodingName()
	text, err := decodeLine(i.charset, line)
	if err != nil {
		i.RaiseError(fmt.Errorf("%w: decoding submitted line: %v", ErrProtocolViolation, err))
	}
	i.safeCall(func() { i.hooks.OnSubmit(i, []byte(text), encodingName) })
}

func (i *Interpreter) handleCommand(c Command) {
	if !c.IsNegotiationRequest() && c.OpCode != DONT && c.OpCode != WONT {
		// NOP, GA and any other standalone opcode: nothing to negotiate.
		return
	}

	if err := i.plugins.processNegotiation(i, c); err != nil {
		i.RaiseError(err)
	}
}

func (i *Interpreter) handleSubnegotiation(c Command) {
	if err := i.plugins.processSubnegotiation(i, c); err != nil {
		i.RaiseError(err)
	}
}

func (i *Interpreter) handleProtocolError(err error) {
	i.RaiseError(err)
}

// RaiseError logs a recoverable protocol anomaly or callback failure and
// forwards it to EventHooks.OnError. The log level is tiered by error kind
// (§7): a callback that panicked or returned an error is this module's own
// bug surfacing, logged at Error; an unsupported option code or a stray SE
// the framer already recovered from on its own is routine noise from
// talking to arbitrary peers, logged at Debug; a malformed subnegotiation
// (a bad escape inside SB, or a plugin rejecting the payload) sits in
// between at Warn.
func (i *Interpreter) RaiseError(err error) {
	if i.logger != nil {
		switch {
		case errors.Is(err, ErrCallbackFailure):
			i.logger.Error("telnet: protocol error", "error", err)
		case errors.Is(err, ErrUnsupportedOption), errors.Is(err, errFramerRecovered):
			i.logger.Debug("telnet: protocol error", "error", err)
		default:
			i.logger.Warn("telnet: protocol error", "error", err)
		}
	}
	if i.hooks.OnError != nil {
		i.safeCall(func() { i.hooks.OnError(i, err) })
	}
}

func (i *Interpreter) RaiseEchoState(remoteWillEcho bool) {
	if i.hooks.OnEchoState != nil {
		i.safeCall(func() { i.hooks.OnEchoState(i, remoteWillEcho) })
	}
}

func (i *Interpreter) RaiseNAWS(width, height int) {
	if i.hooks.OnNAWS != nil {
		i.safeCall(func() { i.hooks.OnNAWS(i, width, height) })
	}
}

func (i *Interpreter) RaiseCharsetChanged(encodingName string) {
	if i.hooks.OnCharset != nil {
		i.safeCall(func() { i.hooks.OnCharset(i, encodingName) })
	}
}

func (i *Interpreter) RaiseMSSP(config *MSSPConfig) {
	if i.hooks.OnMSSP != nil {
		i.safeCall(func() { i.hooks.OnMSSP(i, config) })
	}
}

func (i *Interpreter) RaiseGMCP(packageName, message string) {
	if i.hooks.OnGMCP != nil {
		i.safeCall(func() { i.hooks.OnGMCP(i, packageName, message) })
	}
}

func (i *Interpreter) RaiseMSDP(report map[string]MSDPValue) {
	if i.hooks.OnMSDP != nil {
		i.safeCall(func() { i.hooks.OnMSDP(i, report) })
	}
}

func (i *Interpreter) RaiseCompression(version int, enabled bool) {
	if i.hooks.OnCompression != nil {
		i.safeCall(func() { i.hooks.OnCompression(i, version, enabled) })
	}
}

// safeCall isolates a user-supplied callback so a panic inside it can't take
// down the worker goroutine; it surfaces as ErrCallbackFailure instead.
func (i *Interpreter) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			i.RaiseError(fmt.Errorf("%w: %v", ErrCallbackFailure, r))
		}
	}()
	fn()
}

// decodeLine decodes an entire line's worth of bytes under cs's current
// decoding encoding, calling Charset.Decode (which decodes one character
// per call) until the whole line is consumed.
func decodeLine(cs *Charset, line []byte) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 8)
	remaining := line

	for len(remaining) > 0 {
		consumed, produced, err := cs.Decode(buf, remaining)
		if err != nil {
			return sb.String(), err
		}
		if consumed == 0 && produced == 0 {
			break
		}
		sb.Write(buf[:produced])
		remaining = remaining[consumed:]
	}

	return sb.String(), nil
}

// serializeCommand is the inverse of parseCommand: it renders a Command
// back into the IAC-framed bytes that belong on the wire, doubling any
// literal 0xFF inside a subnegotiation payload.
func serializeCommand(c Command) []byte {
	switch c.OpCode {
	case NOP, GA:
		return []byte{IAC, c.OpCode}
	case SB:
		b := make([]byte, 0, len(c.Subnegotiation)+6)
		b = append(b, IAC, SB, byte(c.Option))
		for _, by := range c.Subnegotiation {
			b = append(b, by)
			if by == IAC {
				b = append(b, IAC)
			}
		}
		b = append(b, IAC, SE)
		return b
	default:
		return []byte{IAC, c.OpCode, byte(c.Option)}
	}
}
