package telnet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Telnet command bytes (RFC 854) and the extension option codes this engine
// negotiates. These are the "trigger alphabet" the framer and plugin manager
// dispatch on.
const (
	SE   byte = 240
	NOP  byte = 241
	GA   byte = 249
	SB   byte = 250
	WILL byte = 251
	WONT byte = 252
	DO   byte = 253
	DONT byte = 254
	IAC  byte = 255
)

// TelOptCode identifies a Telnet option, either a well-known one (ECHO, NAWS,
// ...) or a vendor extension.
type TelOptCode byte

const (
	OptionECHO    TelOptCode = 1
	OptionNAWS    TelOptCode = 31
	OptionCHARSET TelOptCode = 42
	OptionMSDP    TelOptCode = 69
	OptionMSSP    TelOptCode = 70
	OptionMCCP2   TelOptCode = 86
	OptionMCCP3   TelOptCode = 87
	OptionGMCP    TelOptCode = 201
)

// Structural bytes inside the CHARSET subnegotiation payload (§4.4.2).
const (
	CharsetREQUEST  byte = 1
	CharsetACCEPTED byte = 2
	CharsetREJECTED byte = 3
)

// Structural bytes inside the MSDP/MSSP subnegotiation payloads (§4.4.3, §4.4.4).
const (
	MSDPVar        byte = 1
	MSDPVal        byte = 2
	MSDPTableOpen  byte = 3
	MSDPTableClose byte = 4
	MSDPArrayOpen  byte = 5
	MSDPArrayClose byte = 6
)

var commandNames = map[byte]string{
	SE:   "SE",
	NOP:  "NOP",
	GA:   "GA",
	SB:   "SB",
	WILL: "WILL",
	WONT: "WONT",
	DO:   "DO",
	DONT: "DONT",
	IAC:  "IAC",
}

// Command is a fully parsed Telnet negotiation or subnegotiation command,
// stripped of its IAC framing and with any doubled 0xFF already collapsed.
type Command struct {
	OpCode         byte
	Option         TelOptCode
	Subnegotiation []byte
}

func (c Command) String() string {
	var sb strings.Builder
	sb.WriteString("IAC ")

	opName, known := commandNames[c.OpCode]
	if !known {
		opName = strconv.Itoa(int(c.OpCode))
	}
	sb.WriteString(opName)

	if c.OpCode == GA || c.OpCode == NOP {
		return sb.String()
	}

	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(int(c.Option)))

	if c.OpCode != SB {
		return sb.String()
	}

	for _, b := range c.Subnegotiation {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(int(b)))
	}
	sb.WriteString(" IAC SE")

	return sb.String()
}

// IsNegotiationRequest is true for DO/WILL, the two "turn this on" verbs.
func (c Command) IsNegotiationRequest() bool {
	return c.OpCode == DO || c.OpCode == WILL
}

// IsLocalRequest is true when this command concerns the local half-channel
// (DO/DONT, sent by the peer about what *we* should do).
func (c Command) IsLocalRequest() bool {
	return c.OpCode == DO || c.OpCode == DONT
}

// Reject turns a DO/WILL into the corresponding refusal (WONT/DONT). Any
// other opcode returns a NOP, since only negotiation requests can be
// rejected.
func (c Command) Reject() Command {
	switch c.OpCode {
	case DO:
		return Command{OpCode: WONT, Option: c.Option}
	case WILL:
		return Command{OpCode: DONT, Option: c.Option}
	default:
		return Command{OpCode: NOP}
	}
}

// Accept turns a DO/WILL into the matching assertion (WILL/DO).
func (c Command) Accept() Command {
	switch c.OpCode {
	case DO:
		return Command{OpCode: WILL, Option: c.Option}
	case WILL:
		return Command{OpCode: DO, Option: c.Option}
	default:
		return Command{OpCode: NOP}
	}
}

var errStandaloneIAC = errors.New("telnet: standalone IAC with no opcode")

// parseCommand turns IAC-framed wire bytes back into a Command, collapsing
// any doubled 0xFF inside a subnegotiation payload; it is the inverse of
// serializeCommand. The framer itself never needs to re-parse bytes- it
// builds Command values directly as it walks its state table.
func parseCommand(data []byte) (Command, error) {
	if len(data) == 0 || data[0] != IAC {
		return Command{}, fmt.Errorf("telnet: command did not begin with IAC: %q", commandStream(data))
	}
	if len(data) < 2 {
		return Command{}, errStandaloneIAC
	}

	if data[1] == NOP || data[1] == GA {
		return Command{OpCode: data[1]}, nil
	}

	if len(data) < 3 {
		return Command{}, fmt.Errorf("telnet: command missing option byte: %q", commandStream(data))
	}

	if data[1] != SB {
		return Command{OpCode: data[1], Option: TelOptCode(data[2])}, nil
	}

	if len(data) < 5 || data[len(data)-2] != IAC || data[len(data)-1] != SE {
		return Command{}, fmt.Errorf("telnet: subnegotiation did not end with IAC SE: %q", commandStream(data))
	}

	raw := data[3 : len(data)-2]
	payload := make([]byte, 0, len(raw))
	for j := 0; j < len(raw); j++ {
		payload = append(payload, raw[j])
		if raw[j] == IAC && j+1 < len(raw) && raw[j+1] == IAC {
			j++
		}
	}

	return Command{
		OpCode:         SB,
		Option:         TelOptCode(data[2]),
		Subnegotiation: payload,
	}, nil
}

func commandStream(b []byte) string {
	var sb strings.Builder
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if name, ok := commandNames[v]; ok {
			sb.WriteString(name)
		} else {
			sb.WriteString(strconv.Itoa(int(v)))
		}
	}
	return sb.String()
}
