package telopts

import (
	"strings"
	"sync"
	"testing"

	"github.com/moodclient/telnet"
)

func TestCHARSETAcceptsOfferedRequest(t *testing.T) {
	sink := &writeSink{}
	var mu sync.Mutex
	var changed []string

	hooks := telnet.EventHooks{
		OnNegotiation: sink.hook(),
		OnCharset: func(i *telnet.Interpreter, encodingName string) {
			mu.Lock()
			changed = append(changed, encodingName)
			mu.Unlock()
		},
	}

	i := buildInterpreter(t, telnet.SideClient, hooks,
		RegisterCHARSET(telnet.AllowLocal|telnet.AllowRemote, CHARSETConfig{AllowAnyCharset: true}))

	if err := i.Interpret([]byte{telnet.IAC, telnet.WILL, byte(telnet.OptionCHARSET)}); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	i.WaitForProcessing()

	request := []byte{telnet.CharsetREQUEST, ';'}
	request = append(request, []byte("UTF-8")...)
	if err := i.Interpret(append(append([]byte{telnet.IAC, telnet.SB, byte(telnet.OptionCHARSET)}, request...), telnet.IAC, telnet.SE)); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	i.WaitForProcessing()

	if i.Charset().NegotiatedCharsetName() != "UTF-8" {
		t.Errorf("NegotiatedCharsetName() = %q, want UTF-8", i.Charset().NegotiatedCharsetName())
	}

	mu.Lock()
	if len(changed) == 0 {
		t.Fatal("expected at least one OnCharset callback")
	}
	if changed[len(changed)-1] != "UTF-8" {
		t.Errorf("last OnCharset = %q, want UTF-8", changed[len(changed)-1])
	}
	mu.Unlock()

	written := sink.all()
	last := written[len(written)-1]
	if !strings.HasPrefix(string(last), string([]byte{telnet.IAC, telnet.SB, byte(telnet.OptionCHARSET), telnet.CharsetACCEPTED})) {
		t.Errorf("expected an ACCEPTED reply, got %v", last)
	}
}

func TestCHARSETRejectsUnacceptableCharset(t *testing.T) {
	i := buildInterpreter(t, telnet.SideClient, telnet.EventHooks{},
		RegisterCHARSET(telnet.AllowRemote, CHARSETConfig{PreferredCharsets: []string{"UTF-8"}}))

	if err := i.Interpret([]byte{telnet.IAC, telnet.WILL, byte(telnet.OptionCHARSET)}); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	i.WaitForProcessing()

	request := []byte{telnet.CharsetREQUEST, ';'}
	request = append(request, []byte("ISO-8859-1")...)
	if err := i.Interpret(append(append([]byte{telnet.IAC, telnet.SB, byte(telnet.OptionCHARSET)}, request...), telnet.IAC, telnet.SE)); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	i.WaitForProcessing()

	if i.Charset().NegotiatedCharsetName() == "ISO-8859-1" {
		t.Error("an offer outside PreferredCharsets (with AllowAnyCharset unset) should be rejected")
	}
}

func TestCHARSETOffersRequestOnActivation(t *testing.T) {
	sink := &writeSink{}
	hooks := telnet.EventHooks{OnNegotiation: sink.hook()}

	i := buildInterpreter(t, telnet.SideClient, hooks,
		RegisterCHARSET(telnet.RequestLocal, CHARSETConfig{PreferredCharsets: []string{"UTF-8", "ISO-8859-1"}}))

	// The builder already sent the initial WILL; the peer now confirms it.
	if err := i.Interpret([]byte{telnet.IAC, telnet.DO, byte(telnet.OptionCHARSET)}); err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	i.WaitForProcessing()

	written := sink.all()
	last := written[len(written)-1]
	want := string([]byte{telnet.IAC, telnet.SB, byte(telnet.OptionCHARSET), telnet.CharsetREQUEST, ';'}) + "UTF-8;ISO-8859-1"
	if !strings.HasPrefix(string(last), want) {
		t.Errorf("REQUEST subnegotiation = %v, want prefix %q", last, want)
	}

	if _, ok := telnet.GetTelOpt[*CHARSET](i); !ok {
		t.Fatal("expected to find *CHARSET plugin")
	}
	if !i.HasPriorityLock(charsetPriorityLock) {
		t.Error("expected the priority lock to be held while our own request is in flight")
	}
}
