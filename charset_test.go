package telnet

import "testing"

func TestNewCharsetDefaultsNegotiatedToDefault(t *testing.T) {
	cs, err := NewCharset("US-ASCII", CharsetUsageBinary)
	if err != nil {
		t.Fatalf("NewCharset error: %v", err)
	}
	if cs.DefaultCharsetName() != cs.NegotiatedCharsetName() {
		t.Errorf("default %q != negotiated %q before negotiation", cs.DefaultCharsetName(), cs.NegotiatedCharsetName())
	}
}

func TestCharsetUsageBinaryUsesDefaultUntilBinaryMode(t *testing.T) {
	cs, err := NewCharset("US-ASCII", CharsetUsageBinary)
	if err != nil {
		t.Fatalf("NewCharset error: %v", err)
	}
	if err := cs.SetNegotiatedCharset("UTF-8"); err != nil {
		t.Fatalf("SetNegotiatedCharset error: %v", err)
	}

	if got := cs.EncodingName(); got != "US-ASCII" {
		t.Errorf("EncodingName() before binary mode = %q, want US-ASCII", got)
	}

	cs.SetBinaryEncode(true)
	if got := cs.EncodingName(); got != "UTF-8" {
		t.Errorf("EncodingName() after binary mode = %q, want UTF-8", got)
	}
}

func TestCharsetUsageAlwaysIgnoresBinaryMode(t *testing.T) {
	cs, err := NewCharset("US-ASCII", CharsetUsageAlways)
	if err != nil {
		t.Fatalf("NewCharset error: %v", err)
	}
	if err := cs.SetNegotiatedCharset("UTF-8"); err != nil {
		t.Fatalf("SetNegotiatedCharset error: %v", err)
	}

	if got := cs.EncodingName(); got != "UTF-8" {
		t.Errorf("EncodingName() under CharsetUsageAlways = %q, want UTF-8", got)
	}
}

func TestCharsetEncodeDecodeRoundTrip(t *testing.T) {
	cs, err := NewCharset("UTF-8", CharsetUsageAlways)
	if err != nil {
		t.Fatalf("NewCharset error: %v", err)
	}

	encoded, err := cs.Encode("hello")
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	decoded, err := decodeLine(cs, encoded)
	if err != nil {
		t.Fatalf("decodeLine error: %v", err)
	}
	if decoded != "hello" {
		t.Errorf("decodeLine = %q, want hello", decoded)
	}
}

func TestPromoteDefaultCharset(t *testing.T) {
	cs, err := NewCharset("US-ASCII", CharsetUsageBinary)
	if err != nil {
		t.Fatalf("NewCharset error: %v", err)
	}

	changed, err := cs.PromoteDefaultCharset("US-ASCII", "UTF-8")
	if err != nil {
		t.Fatalf("PromoteDefaultCharset error: %v", err)
	}
	if !changed {
		t.Fatal("expected PromoteDefaultCharset to report a change")
	}
	if cs.DefaultCharsetName() != "UTF-8" {
		t.Errorf("DefaultCharsetName() = %q, want UTF-8", cs.DefaultCharsetName())
	}

	// A second promotion attempt against the old name is now a no-op.
	changed, err = cs.PromoteDefaultCharset("US-ASCII", "ISO-8859-1")
	if err != nil {
		t.Fatalf("PromoteDefaultCharset error: %v", err)
	}
	if changed {
		t.Error("expected no change when oldCodePage no longer matches")
	}
}

func TestNewCharsetUnknownEncoding(t *testing.T) {
	if _, err := NewCharset("NOT-A-REAL-CHARSET", CharsetUsageBinary); err == nil {
		t.Error("expected an error for an unresolvable charset name")
	}
}
