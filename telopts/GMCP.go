package telopts

import (
	"bytes"
	"fmt"

	"github.com/moodclient/telnet"
)

const gmcp telnet.TelOptCode = telnet.OptionGMCP

func RegisterGMCP(usage telnet.TelOptUsage) telnet.TelnetOption {
	return &GMCP{
		BaseTelOpt: NewBaseTelOpt(gmcp, "GMCP", usage),
	}
}

// GMCP carries free-form UTF-8 (conventionally JSON) application messages,
// each addressed to a dotted package name (RFC-less, MUD-convention
// protocol). The core never parses the payload.
type GMCP struct {
	BaseTelOpt
}

func (o *GMCP) Subnegotiate(subnegotiation []byte) error {
	idx := bytes.IndexByte(subnegotiation, ' ')
	var packageName, message string
	if idx < 0 {
		packageName = string(subnegotiation)
	} else {
		packageName = string(subnegotiation[:idx])
		message = string(subnegotiation[idx+1:])
	}

	o.Interpreter().RaiseGMCP(packageName, message)
	return nil
}

func (o *GMCP) SubnegotiationString(subnegotiation []byte) (string, error) {
	return string(subnegotiation), nil
}

// SendMessage writes an SB GMCP packageName SPACE message IAC SE
// subnegotiation. Exported with this exact signature to satisfy telnet's
// internal gmcpCarrier interface, which SendGMCP uses to reach this plugin
// across the package boundary.
func (o *GMCP) SendMessage(i *telnet.Interpreter, packageName, message string) error {
	if o.LocalState() != telnet.TelOptYES && o.RemoteState() != telnet.TelOptYES {
		return fmt.Errorf("gmcp: option not active on either half-channel")
	}

	payload := make([]byte, 0, len(packageName)+1+len(message))
	payload = append(payload, []byte(packageName)...)
	payload = append(payload, ' ')
	payload = append(payload, []byte(message)...)

	return i.WriteCommand(telnet.Command{
		OpCode:         telnet.SB,
		Option:         gmcp,
		Subnegotiation: payload,
	})
}
