package telnet

import (
	"reflect"
	"testing"
)

type framerHarness struct {
	bytes     []byte
	lines     [][]byte
	commands  []Command
	subnegs   []Command
	protoErrs []error
}

func newFramerHarness() (*framer, *framerHarness) {
	h := &framerHarness{}
	f := &framer{
		state: frameData,
		onByte: func(b byte) {
			h.bytes = append(h.bytes, b)
		},
		onLine: func(line []byte) {
			cp := append([]byte(nil), line...)
			h.lines = append(h.lines, cp)
		},
		onCommand: func(c Command) {
			h.commands = append(h.commands, c)
		},
		onSubnegotiation: func(c Command) {
			h.subnegs = append(h.subnegs, c)
		},
		onProtocolError: func(err error) {
			h.protoErrs = append(h.protoErrs, err)
		},
	}
	return f, h
}

func feed(f *framer, data []byte) {
	for _, b := range data {
		f.Step(b)
	}
}

func TestFramerPlainDataAndLines(t *testing.T) {
	f, h := newFramerHarness()
	feed(f, []byte("hello\r\nworld\r\n"))

	if len(h.lines) != 2 {
		t.Fatalf("got %d lines, want 2: %v", len(h.lines), h.lines)
	}
	if string(h.lines[0]) != "hello" || string(h.lines[1]) != "world" {
		t.Errorf("lines = %q, %q", h.lines[0], h.lines[1])
	}
	if len(h.bytes) != len("hello\r\nworld\r\n") {
		t.Errorf("got %d bytes delivered, want %d", len(h.bytes), len("hello\r\nworld\r\n"))
	}
}

func TestFramerLineFeedWithoutCR(t *testing.T) {
	f, h := newFramerHarness()
	feed(f, []byte("abc\n"))

	if len(h.lines) != 1 || string(h.lines[0]) != "abc" {
		t.Fatalf("lines = %v, want [abc]", h.lines)
	}
}

func TestFramerEscapedIACIsLiteralByte(t *testing.T) {
	f, h := newFramerHarness()
	feed(f, []byte{'a', IAC, IAC, 'b', '\n'})

	if len(h.lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(h.lines))
	}
	want := []byte{'a', 0xFF, 'b'}
	if string(h.lines[0]) != string(want) {
		t.Errorf("line = %v, want %v", h.lines[0], want)
	}
}

func TestFramerStandaloneCommands(t *testing.T) {
	f, h := newFramerHarness()
	feed(f, []byte{IAC, NOP, IAC, GA})

	if len(h.commands) != 2 {
		t.Fatalf("got %d commands, want 2", len(h.commands))
	}
	if h.commands[0].OpCode != NOP || h.commands[1].OpCode != GA {
		t.Errorf("commands = %+v", h.commands)
	}
}

func TestFramerNegotiationCommands(t *testing.T) {
	f, h := newFramerHarness()
	feed(f, []byte{IAC, WILL, byte(OptionECHO), IAC, DONT, byte(OptionNAWS)})

	if len(h.commands) != 2 {
		t.Fatalf("got %d commands, want 2: %+v", len(h.commands), h.commands)
	}
	want0 := Command{OpCode: WILL, Option: OptionECHO}
	want1 := Command{OpCode: DONT, Option: OptionNAWS}
	if !reflect.DeepEqual(h.commands[0], want0) {
		t.Errorf("commands[0] = %+v, want %+v", h.commands[0], want0)
	}
	if !reflect.DeepEqual(h.commands[1], want1) {
		t.Errorf("commands[1] = %+v, want %+v", h.commands[1], want1)
	}
}

func TestFramerSubnegotiation(t *testing.T) {
	f, h := newFramerHarness()
	feed(f, []byte{IAC, SB, byte(OptionCHARSET), CharsetREQUEST, ';', 'U', 'T', 'F', '-', '8', IAC, SE})

	if len(h.subnegs) != 1 {
		t.Fatalf("got %d subnegotiations, want 1", len(h.subnegs))
	}
	sub := h.subnegs[0]
	if sub.OpCode != SB || sub.Option != OptionCHARSET {
		t.Fatalf("subneg = %+v", sub)
	}
	want := []byte{CharsetREQUEST, ';', 'U', 'T', 'F', '-', '8'}
	if string(sub.Subnegotiation) != string(want) {
		t.Errorf("subneg payload = %v, want %v", sub.Subnegotiation, want)
	}
}

func TestFramerSubnegotiationEscapedIAC(t *testing.T) {
	f, h := newFramerHarness()
	feed(f, []byte{IAC, SB, byte(OptionNAWS), 0x00, IAC, IAC, 0x50, IAC, SE})

	if len(h.subnegs) != 1 {
		t.Fatalf("got %d subnegotiations, want 1", len(h.subnegs))
	}
	want := []byte{0x00, 0xFF, 0x50}
	if string(h.subnegs[0].Subnegotiation) != string(want) {
		t.Errorf("subneg payload = %v, want %v", h.subnegs[0].Subnegotiation, want)
	}
}

func TestFramerStraySEIsProtocolError(t *testing.T) {
	f, h := newFramerHarness()
	feed(f, []byte{IAC, SE})

	if len(h.protoErrs) != 1 {
		t.Fatalf("got %d protocol errors, want 1", len(h.protoErrs))
	}
}

func TestFramerMalformedSubnegotiationEscape(t *testing.T) {
	f, h := newFramerHarness()
	// IAC inside a subnegotiation followed by anything other than IAC or SE.
	feed(f, []byte{IAC, SB, byte(OptionECHO), 'x', IAC, WILL})

	if len(h.protoErrs) != 1 {
		t.Fatalf("got %d protocol errors, want 1", len(h.protoErrs))
	}
	if len(h.subnegs) != 0 {
		t.Errorf("expected no completed subnegotiation, got %+v", h.subnegs)
	}
}

func TestFramerMixedDataAndCommands(t *testing.T) {
	f, h := newFramerHarness()
	feed(f, []byte("go "))
	feed(f, []byte{IAC, WILL, byte(OptionECHO)})
	feed(f, []byte("on\r\n"))

	if len(h.commands) != 1 {
		t.Fatalf("got %d commands, want 1", len(h.commands))
	}
	if len(h.lines) != 1 || string(h.lines[0]) != "go on" {
		t.Errorf("lines = %v, want [go on]", h.lines)
	}
}
