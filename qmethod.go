package telnet

// TelOptState is one of the four canonical Q-method flags from RFC 1143,
// tracked independently for the local half-channel (we WILL/WONT, peer
// replies DO/DONT) and the remote half-channel (peer WILL/WONT, we reply
// DO/DONT) of every option.
//
// Invariant: at most one WANT* transition is outstanding per (option,
// direction) at a time; a peer reply opposite to the pending request
// resolves it at once (WANTYES to NO, WANTNO to YES) rather than queuing a
// second request (see DESIGN.md's Q-method notes-
// this engine implements the simplified two-state-machine variant spec.md
// describes, not RFC 1143's queued "opposite" sub-flag).
type TelOptState byte

const (
	TelOptNO TelOptState = iota
	TelOptWANTNO
	TelOptWANTYES
	TelOptYES
)

func (s TelOptState) String() string {
	switch s {
	case TelOptNO:
		return "NO"
	case TelOptWANTNO:
		return "WANTNO"
	case TelOptWANTYES:
		return "WANTYES"
	case TelOptYES:
		return "YES"
	default:
		return "?"
	}
}

// qOutcome is the result of feeding one peer verb into the Q-method state
// machine for a single half-channel.
type qOutcome struct {
	Next          TelOptState
	SendVerb      bool // whether we must emit our own verb on this half-channel
	VerbOn        bool // true=assert (WILL/DO), false=deassert (WONT/DONT)
	FiredEnabled  bool
	FiredDisabled bool
}

// qStepIncoming advances a half-channel's flag on receipt of a peer verb.
// peerWantsOn is true for DO/WILL, false for DONT/WONT. allowed governs
// whether an unsolicited enable request (flag==NO) may be granted.
func qStepIncoming(flag TelOptState, peerWantsOn, allowed bool) qOutcome {
	if peerWantsOn {
		switch flag {
		case TelOptNO:
			if !allowed {
				return qOutcome{Next: TelOptNO, SendVerb: true, VerbOn: false}
			}
			return qOutcome{Next: TelOptYES, SendVerb: true, VerbOn: true, FiredEnabled: true}
		case TelOptYES:
			// Duplicate assertion while already active: idempotent, no reply.
			return qOutcome{Next: TelOptYES}
		case TelOptWANTYES:
			// The reply we were expecting.
			return qOutcome{Next: TelOptYES, FiredEnabled: true}
		case TelOptWANTNO:
			// Opposite of what we asked for: peer insists on staying on.
			// The option was never actually off, so no enabled hook fires.
			return qOutcome{Next: TelOptYES}
		}
	} else {
		switch flag {
		case TelOptNO:
			// Already off.
			return qOutcome{Next: TelOptNO}
		case TelOptYES:
			return qOutcome{Next: TelOptNO, FiredDisabled: true}
		case TelOptWANTYES:
			// Opposite of what we asked for: collapses to NO, but it was
			// never on, so no disabled hook fires.
			return qOutcome{Next: TelOptNO}
		case TelOptWANTNO:
			// Confirms our request.
			return qOutcome{Next: TelOptNO, FiredDisabled: true}
		}
	}

	return qOutcome{Next: flag}
}

// qStepOutgoing advances a half-channel's flag when the local side decides,
// on its own initiative, to request a new state (offer WILL at startup,
// drop an option programmatically, etc). It reports whether a verb must be
// written to the wire.
func qStepOutgoing(flag TelOptState, wantOn bool) (next TelOptState, sendVerb bool) {
	if wantOn {
		switch flag {
		case TelOptNO:
			return TelOptWANTYES, true
		case TelOptWANTNO:
			// A disable is already in flight; just retarget it. The reply
			// handler will resolve this the next time a verb arrives.
			return TelOptWANTYES, false
		default:
			return flag, false
		}
	}

	switch flag {
	case TelOptYES:
		return TelOptWANTNO, true
	case TelOptWANTYES:
		return TelOptWANTNO, false
	default:
		return flag, false
	}
}
