package telopts

import (
	"github.com/moodclient/telnet"
)

const mccp2 telnet.TelOptCode = telnet.OptionMCCP2
const mccp3 telnet.TelOptCode = telnet.OptionMCCP3

// RegisterMCCP2 builds the server→peer compression option. Whichever side's
// WILL MCCP2 is accepted starts compressing everything it subsequently
// writes, signaled by the empty SB MCCP2 marker; the peer starts
// decompressing its inbound stream the moment that marker arrives.
func RegisterMCCP2(usage telnet.TelOptUsage) telnet.TelnetOption {
	return &MCCP2{
		BaseTelOpt: NewBaseTelOpt(mccp2, "MCCP2", usage),
	}
}

type MCCP2 struct {
	BaseTelOpt
}

func (o *MCCP2) TransitionLocalState(newState telnet.TelOptState) error {
	if err := o.BaseTelOpt.TransitionLocalState(newState); err != nil {
		return err
	}

	i := o.Interpreter()
	switch newState {
	case telnet.TelOptYES:
		if err := i.WriteCommand(telnet.Command{OpCode: telnet.SB, Option: mccp2}); err != nil {
			return err
		}
		i.EnableOutboundCompression(2)
	case telnet.TelOptNO:
		i.DisableOutboundCompression(2)
	}
	return nil
}

func (o *MCCP2) Subnegotiate(subnegotiation []byte) error {
	o.Interpreter().EnableInboundCompression(2)
	return nil
}

func (o *MCCP2) SubnegotiationString(subnegotiation []byte) (string, error) {
	return "begin compression", nil
}

// RegisterMCCP3 builds the peer→server compression option (client-to-server
// direction). Implemented independently of MCCP2: it declares no dependency
// on it, and a peer rejecting MCCP3 has no effect on MCCP2's own
// negotiation (SPEC_FULL's MCCP3-ordering decision).
func RegisterMCCP3(usage telnet.TelOptUsage) telnet.TelnetOption {
	return &MCCP3{
		BaseTelOpt: NewBaseTelOpt(mccp3, "MCCP3", usage),
	}
}

type MCCP3 struct {
	BaseTelOpt
}

func (o *MCCP3) TransitionRemoteState(newState telnet.TelOptState) error {
	if err := o.BaseTelOpt.TransitionRemoteState(newState); err != nil {
		return err
	}

	i := o.Interpreter()
	switch newState {
	case telnet.TelOptYES:
		// We just accepted the peer's WILL MCCP3- tell them to start
		// compressing now, and start decompressing what they send us.
		if err := i.WriteCommand(telnet.Command{OpCode: telnet.SB, Option: mccp3}); err != nil {
			return err
		}
		i.EnableInboundCompression(3)
	case telnet.TelOptNO:
		i.DisableInboundCompression(3)
	}
	return nil
}

func (o *MCCP3) Subnegotiate(subnegotiation []byte) error {
	o.Interpreter().EnableOutboundCompression(3)
	return nil
}

func (o *MCCP3) SubnegotiationString(subnegotiation []byte) (string, error) {
	return "begin compression", nil
}
