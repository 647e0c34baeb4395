package telopts

import (
	"github.com/moodclient/telnet"
)

const echo telnet.TelOptCode = telnet.OptionECHO

// RegisterECHO builds the ECHO option module (RFC 857). ECHO carries no
// subnegotiation; its only effect is the Q-method state itself; a client
// reads the remote half-channel to learn whether the peer has taken over
// echoing and should suppress its own local echo.
func RegisterECHO(usage telnet.TelOptUsage) telnet.TelnetOption {
	return &ECHO{
		BaseTelOpt: NewBaseTelOpt(echo, "ECHO", usage),
	}
}

type ECHO struct {
	BaseTelOpt
}

// TransitionRemoteState handles the client side of ECHO: the peer (server)
// announcing WILL/WONT ECHO tells us whether it has taken over echoing.
func (o *ECHO) TransitionRemoteState(newState telnet.TelOptState) error {
	if err := o.BaseTelOpt.TransitionRemoteState(newState); err != nil {
		return err
	}

	if i := o.Interpreter(); i != nil {
		i.RaiseEchoState(newState == telnet.TelOptYES)
	}
	return nil
}

// TransitionLocalState handles the server side of ECHO: accepting the
// peer's DO/DONT ECHO means this side itself starts or stops echoing, which
// fires the same callback the remote half uses on a client (§8 property 2).
func (o *ECHO) TransitionLocalState(newState telnet.TelOptState) error {
	if err := o.BaseTelOpt.TransitionLocalState(newState); err != nil {
		return err
	}

	if i := o.Interpreter(); i != nil {
		i.RaiseEchoState(newState == telnet.TelOptYES)
	}
	return nil
}
