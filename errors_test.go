package telnet

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newLoggingInterpreter(t *testing.T, opts ...TelnetOption) (*Interpreter, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	b := NewInterpreterBuilder(SideClient).WithLogger(logger)
	for _, opt := range opts {
		b.RegisterTelOpts(opt)
	}

	i, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	t.Cleanup(i.Dispose)

	return i, &buf
}

func TestRaiseErrorLogsUnsupportedOptionAtDebug(t *testing.T) {
	i, buf := newLoggingInterpreter(t)

	if err := i.Interpret([]byte{IAC, WILL, 99}); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	i.WaitForProcessing()

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") {
		t.Errorf("log output = %q, want level=DEBUG for an unsupported option", out)
	}
}

func TestRaiseErrorLogsStraySEAtDebug(t *testing.T) {
	i, buf := newLoggingInterpreter(t)

	if err := i.Interpret([]byte{IAC, SE}); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	i.WaitForProcessing()

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") {
		t.Errorf("log output = %q, want level=DEBUG for a stray SE", out)
	}
}

func TestRaiseErrorLogsCallbackFailureAtError(t *testing.T) {
	opt := &fakeOption{code: 1, name: "TEST", usage: AllowRemote, transitionErr: errors.New("boom")}
	i, buf := newLoggingInterpreter(t, opt)

	if err := i.Interpret([]byte{IAC, WILL, 1}); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	i.WaitForProcessing()

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") {
		t.Errorf("log output = %q, want level=ERROR for a callback failure", out)
	}
}

func TestRaiseErrorLogsSubnegotiationRejectionAtWarn(t *testing.T) {
	opt := &fakeOption{code: 1, name: "TEST", usage: AllowRemote, subnegotiateErr: errors.New("bad payload")}
	i, buf := newLoggingInterpreter(t, opt)

	if err := i.Interpret([]byte{IAC, WILL, 1}); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	i.WaitForProcessing()
	buf.Reset()

	if err := i.Interpret([]byte{IAC, SB, 1, 0xAB, IAC, SE}); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	i.WaitForProcessing()

	out := buf.String()
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("log output = %q, want level=WARN for a rejected subnegotiation", out)
	}
}
