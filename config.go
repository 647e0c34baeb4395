package telnet

// TerminalSide indicates whether this terminal represents a client or server. Technically
// speaking, telnet is a peer-to-peer protocol, more concerned with "local and remote"
// than "client and server". Some RFCs (mainly CHARSET) have distinct behavior
// for clients and server, though.
type TerminalSide byte

const (
	SideUnknown TerminalSide = iota
	SideClient
	SideServer
)

// CharsetUsage indicates when charsets negotiated via the CHARSET telopt are used.
// According to RFC, negotiated telopts are only to be used when TRANSMIT-BINARY is active,
// but many implementations are incorrect. On the other hand, many implementations don't
// actually do anything, they just advertise that the server can handle UTF-8, so
// following the RFC doesn't do any harm.
type CharsetUsage byte

const (
	// CharsetUsageBinary indicates that text communications should use a CHARSET-negotiated character set
	// if the connection is in BINARY mode, and the default character set otherwise
	CharsetUsageBinary CharsetUsage = iota
	// CharsetUsageAlways indicates that text communications should always use a CHARSET-negotiated character
	// set (if any) instead of the default character set
	CharsetUsageAlways
)

