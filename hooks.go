package telnet

// The callback slots in §6. Each hook is optional, explicitly shaped, and
// held as a plain function value- DESIGN NOTES ("Callback delegates with
// varying arity") calls out the teacher's temptation to collapse these into
// a single tagged event bus, and asks that each stay its own field instead.

// SubmitHandler delivers a completed application line, decoded under the
// encoding that was active when it was assembled.
type SubmitHandler func(i *Interpreter, line []byte, encodingName string)

// NegotiationHandler is called when the interpreter wants bytes written to
// the peer unchanged- negotiation replies, subnegotiation requests, or
// anything else that belongs on the wire outside the application stream.
// The adapter owns the transport and is responsible for actually writing
// them.
type NegotiationHandler func(i *Interpreter, data []byte)

// ByteHandler observes every application byte as it's decoded, before line
// assembly. It exists mainly to support local/negotiated echo.
type ByteHandler func(i *Interpreter, b byte, encodingName string)

// ErrorHandler receives protocol anomalies and callback failures that don't
// abort the session (§7). Most adapters will just log these.
type ErrorHandler func(i *Interpreter, err error)

// EchoStateHandler reports a change in the ECHO option's effective state.
type EchoStateHandler func(i *Interpreter, remoteWillEcho bool)

// NAWSHandler reports a newly received terminal size from the peer.
type NAWSHandler func(i *Interpreter, width, height int)

// CharsetChangedHandler reports that CHARSET negotiation selected a new
// encoding.
type CharsetChangedHandler func(i *Interpreter, encodingName string)

// MSSPHandler delivers a decoded MSSP variable snapshot.
type MSSPHandler func(i *Interpreter, config *MSSPConfig)

// GMCPHandler delivers one decoded GMCP (package, message) pair.
type GMCPHandler func(i *Interpreter, packageName, message string)

// MSDPHandler delivers one decoded MSDP report, the outermost implicit
// table produced by scan (§4.4.4).
type MSDPHandler func(i *Interpreter, report map[string]MSDPValue)

// CompressionHandler reports MCCP turning on or off for the given version
// (2 or 3).
type CompressionHandler func(i *Interpreter, version int, enabled bool)

// EventHooks bundles every callback slot the builder accepts. All fields
// are optional; a nil hook is simply never called.
type EventHooks struct {
	OnSubmit      SubmitHandler
	OnNegotiation NegotiationHandler
	OnByte        ByteHandler
	OnError       ErrorHandler
	OnEchoState   EchoStateHandler
	OnNAWS        NAWSHandler
	OnCharset     CharsetChangedHandler
	OnMSSP        MSSPHandler
	OnGMCP        GMCPHandler
	OnMSDP        MSDPHandler
	OnCompression CompressionHandler
}
