package telopts

import (
	"bytes"
	"compress/zlib"
	"io"
	"sync"
	"testing"

	"github.com/moodclient/telnet"
)

func TestMCCP2SendsMarkerAndCompressesOutbound(t *testing.T) {
	sink := &writeSink{}
	var mu sync.Mutex
	var compressionEvents []bool

	hooks := telnet.EventHooks{
		OnNegotiation: sink.hook(),
		OnCompression: func(i *telnet.Interpreter, version int, enabled bool) {
			if version != 2 {
				return
			}
			mu.Lock()
			compressionEvents = append(compressionEvents, enabled)
			mu.Unlock()
		},
	}

	i := buildInterpreter(t, telnet.SideServer, hooks, RegisterMCCP2(telnet.RequestLocal))

	if err := i.Interpret([]byte{telnet.IAC, telnet.DO, byte(telnet.OptionMCCP2)}); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	i.WaitForProcessing()

	written := sink.all()
	if len(written) < 2 {
		t.Fatalf("got %d writes, want at least 2 (WILL offer + marker): %v", len(written), written)
	}
	marker := written[len(written)-1]
	wantMarker := []byte{telnet.IAC, telnet.SB, byte(telnet.OptionMCCP2), telnet.IAC, telnet.SE}
	if string(marker) != string(wantMarker) {
		t.Errorf("marker = %v, want %v", marker, wantMarker)
	}

	mu.Lock()
	if len(compressionEvents) != 1 || !compressionEvents[0] {
		t.Errorf("compression events = %v, want [true]", compressionEvents)
	}
	mu.Unlock()

	if err := i.SubmitOutbound("hi"); err != nil {
		t.Fatalf("SubmitOutbound error: %v", err)
	}

	written = sink.all()
	compressed := written[len(written)-1]

	// The writer only Flushes (a sync point), never Closes, so the chunk
	// carries no zlib trailer- read exactly the expected length instead of
	// draining to EOF.
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatalf("zlib.NewReader error: %v", err)
	}
	plain := make([]byte, len("hi"))
	if _, err := io.ReadFull(zr, plain); err != nil {
		t.Fatalf("reading decompressed data: %v", err)
	}
	if string(plain) != "hi" {
		t.Errorf("decompressed outbound = %q, want \"hi\"", plain)
	}
}

func TestMCCP2DisableStopsCompression(t *testing.T) {
	var mu sync.Mutex
	var compressionEvents []bool

	hooks := telnet.EventHooks{
		OnCompression: func(i *telnet.Interpreter, version int, enabled bool) {
			mu.Lock()
			compressionEvents = append(compressionEvents, enabled)
			mu.Unlock()
		},
	}

	i := buildInterpreter(t, telnet.SideServer, hooks, RegisterMCCP2(telnet.RequestLocal))

	if err := i.Interpret([]byte{telnet.IAC, telnet.DO, byte(telnet.OptionMCCP2)}); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	i.WaitForProcessing()

	if err := i.Interpret([]byte{telnet.IAC, telnet.DONT, byte(telnet.OptionMCCP2)}); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	i.WaitForProcessing()

	mu.Lock()
	defer mu.Unlock()
	if len(compressionEvents) != 2 || compressionEvents[0] != true || compressionEvents[1] != false {
		t.Errorf("compression events = %v, want [true false]", compressionEvents)
	}
}

func TestMCCP3AcceptingPeerSendsMarkerAndEnablesInbound(t *testing.T) {
	sink := &writeSink{}
	var mu sync.Mutex
	var compressionEvents []bool

	hooks := telnet.EventHooks{
		OnNegotiation: sink.hook(),
		OnCompression: func(i *telnet.Interpreter, version int, enabled bool) {
			if version != 3 {
				return
			}
			mu.Lock()
			compressionEvents = append(compressionEvents, enabled)
			mu.Unlock()
		},
	}

	i := buildInterpreter(t, telnet.SideServer, hooks, RegisterMCCP3(telnet.AllowRemote))

	if err := i.Interpret([]byte{telnet.IAC, telnet.WILL, byte(telnet.OptionMCCP3)}); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	i.WaitForProcessing()

	written := sink.all()
	if len(written) < 2 {
		t.Fatalf("got %d writes, want at least 2 (DO reply + marker): %v", len(written), written)
	}
	marker := written[len(written)-1]
	wantMarker := []byte{telnet.IAC, telnet.SB, byte(telnet.OptionMCCP3), telnet.IAC, telnet.SE}
	if string(marker) != string(wantMarker) {
		t.Errorf("marker = %v, want %v", marker, wantMarker)
	}

	mu.Lock()
	if len(compressionEvents) != 1 || !compressionEvents[0] {
		t.Errorf("compression events = %v, want [true]", compressionEvents)
	}
	mu.Unlock()
}

func TestMCCP3OfferingPeerEnablesOutboundOnMarker(t *testing.T) {
	var mu sync.Mutex
	var compressionEvents []bool

	hooks := telnet.EventHooks{
		OnCompression: func(i *telnet.Interpreter, version int, enabled bool) {
			mu.Lock()
			compressionEvents = append(compressionEvents, enabled)
			mu.Unlock()
		},
	}

	// This side offered WILL MCCP3; once the peer accepts and sends back the
	// empty marker subnegotiation, this side starts compressing what it
	// writes.
	i := buildInterpreter(t, telnet.SideClient, hooks, RegisterMCCP3(telnet.RequestLocal))

	if err := i.Interpret([]byte{telnet.IAC, telnet.DO, byte(telnet.OptionMCCP3)}); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	i.WaitForProcessing()

	if err := i.Interpret([]byte{telnet.IAC, telnet.SB, byte(telnet.OptionMCCP3), telnet.IAC, telnet.SE}); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	i.WaitForProcessing()

	mu.Lock()
	if len(compressionEvents) != 1 || !compressionEvents[0] {
		t.Errorf("compression events = %v, want [true]", compressionEvents)
	}
	mu.Unlock()

	if err := i.SubmitOutbound("ok"); err != nil {
		t.Fatalf("SubmitOutbound error: %v", err)
	}
}
