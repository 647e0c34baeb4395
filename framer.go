package telnet

import (
	"errors"
	"fmt"
)

// frameState is the tagged-state enum from §4.1. Re-architected as an
// explicit transition table rather than a general-purpose FSM library
// (REDESIGN FLAGS, "State-machine library dependency")- the states mirror
// the RFC parsing positions exactly.
type frameState int

const (
	frameData frameState = iota
	frameIAC
	frameExpectDo
	frameExpectDont
	frameExpectWill
	frameExpectWont
	frameSubStart
	frameSubBody
	frameSubIAC
)

// framer is the lexical/framing layer (§4.1): it consumes one input byte at
// a time and separates in-band application bytes from Telnet control
// sequences, emitting side effects through its five callback slots. It
// holds no goroutines or queues of its own- Interpreter drives it from its
// single cooperative worker (§5).
type framer struct {
	state     frameState
	subOption TelOptCode
	subBuffer []byte
	lineBuf   []byte

	onByte           func(b byte)
	onLine           func(line []byte)
	onCommand        func(c Command)
	onSubnegotiation func(c Command)
	onProtocolError  func(err error)
}

func newFramer() *framer {
	return &framer{state: frameData}
}

// Step advances the machine by one byte. This is the sole entry point; all
// state transitions and side effects happen here.
func (f *framer) Step(b byte) {
	switch f.state {
	case frameData:
		f.stepData(b)
	case frameIAC:
		f.stepIAC(b)
	case frameExpectDo:
		f.emitNegotiation(DO, b)
	case frameExpectDont:
		f.emitNegotiation(DONT, b)
	case frameExpectWill:
		f.emitNegotiation(WILL, b)
	case frameExpectWont:
		f.emitNegotiation(WONT, b)
	case frameSubStart:
		f.subOption = TelOptCode(b)
		f.subBuffer = f.subBuffer[:0]
		f.state = frameSubBody
	case frameSubBody:
		f.stepSubBody(b)
	case frameSubIAC:
		f.stepSubIAC(b)
	}
}

func (f *framer) stepData(b byte) {
	if b == IAC {
		f.state = frameIAC
		return
	}
	f.deliverByte(b)
}

func (f *framer) stepIAC(b byte) {
	switch b {
	case DO:
		f.state = frameExpectDo
	case DONT:
		f.state = frameExpectDont
	case WILL:
		f.state = frameExpectWill
	case WONT:
		f.state = frameExpectWont
	case SB:
		f.state = frameSubStart
	case IAC:
		// Escaped literal 0xFF in the application stream.
		f.deliverByte(0xFF)
		f.state = frameData
	case SE:
		f.protocolError("telnet: stray SE outside subnegotiation")
		f.state = frameData
	default:
		// NOP, GA, or any other standalone opcode.
		f.onCommand(Command{OpCode: b})
		f.state = frameData
	}
}

func (f *framer) stepSubBody(b byte) {
	if b == IAC {
		f.state = frameSubIAC
		return
	}
	f.subBuffer = append(f.subBuffer, b)
}

func (f *framer) stepSubIAC(b byte) {
	switch b {
	case SE:
		payload := make([]byte, len(f.subBuffer))
		copy(payload, f.subBuffer)
		f.subBuffer = f.subBuffer[:0]
		f.state = frameData
		f.onSubnegotiation(Command{OpCode: SB, Option: f.subOption, Subnegotiation: payload})
	case IAC:
		f.subBuffer = append(f.subBuffer, 0xFF)
		f.state = frameSubBody
	default:
		// A malformed subnegotiation is reported as a plain protocol
		// violation (logged at Warn), not as a framer-recovered anomaly.
		if f.onProtocolError != nil {
			f.onProtocolError(fmt.Errorf("%w: malformed subnegotiation escape", ErrProtocolViolation))
		}
		f.subBuffer = f.subBuffer[:0]
		f.state = frameData
	}
}

func (f *framer) emitNegotiation(verb byte, option byte) {
	f.onCommand(Command{OpCode: verb, Option: TelOptCode(option)})
	f.state = frameData
}

func (f *framer) deliverByte(b byte) {
	f.onByte(b)

	if b == '\n' {
		line := f.lineBuf
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		f.onLine(line)
		f.lineBuf = f.lineBuf[:0]
		return
	}

	f.lineBuf = append(f.lineBuf, b)
}

// errFramerRecovered marks a structural anomaly (a stray SE outside any
// subnegotiation) that the framer itself noticed and recovered from before
// any plugin ever saw it- never part of the public error kinds in errors.go,
// it exists only so RaiseError can log these at Debug instead of the Warn
// level a malformed subnegotiation gets (§7).
var errFramerRecovered = errors.New("telnet: framer-recovered anomaly")

func (f *framer) protocolError(msg string) {
	if f.onProtocolError != nil {
		f.onProtocolError(newProtocolViolation(msg))
	}
}

func newProtocolViolation(msg string) error {
	return &protocolViolationError{msg: msg}
}

type protocolViolationError struct{ msg string }

func (e *protocolViolationError) Error() string { return e.msg }

// Unwrap reports both the public ErrProtocolViolation sentinel and the
// internal errFramerRecovered marker, so errors.Is(err, ErrProtocolViolation)
// still matches for adapters while RaiseError can separately branch on the
// unexported marker for log-level tiering.
func (e *protocolViolationError) Unwrap() []error { return []error{ErrProtocolViolation, errFramerRecovered} }
