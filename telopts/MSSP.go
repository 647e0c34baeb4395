package telopts

import (
	"github.com/moodclient/telnet"
)

const mssp telnet.TelOptCode = telnet.OptionMSSP

// MSSPProvider returns an immutable snapshot of this server's status
// variables. It may be called from the interpreter's worker at any time
// after MSSP activates, so it must not block or touch shared mutable state
// directly (§5, "Shared resources").
type MSSPProvider func() *telnet.MSSPConfig

func RegisterMSSP(usage telnet.TelOptUsage, provider MSSPProvider) telnet.TelnetOption {
	return &MSSP{
		BaseTelOpt: NewBaseTelOpt(mssp, "MSSP", usage),
		provider:   provider,
	}
}

// MSSP lets a server self-describe (player count, codebase, uptime, ...) the
// moment a peer turns the option on, and lets a client receive that
// snapshot. The server side never stores the peer's state; the client side
// never advertises its own.
type MSSP struct {
	BaseTelOpt

	provider MSSPProvider
}

func (o *MSSP) TransitionLocalState(newState telnet.TelOptState) error {
	if err := o.BaseTelOpt.TransitionLocalState(newState); err != nil {
		return err
	}

	if newState != telnet.TelOptYES || o.provider == nil {
		return nil
	}

	config := o.provider()
	if config == nil {
		return nil
	}

	return o.Interpreter().WriteCommand(telnet.Command{
		OpCode:         telnet.SB,
		Option:         mssp,
		Subnegotiation: telnet.ReportMSSP(config),
	})
}

func (o *MSSP) Subnegotiate(subnegotiation []byte) error {
	config, err := telnet.ScanMSSP(subnegotiation)
	if err != nil {
		return err
	}

	o.Interpreter().RaiseMSSP(config)
	return nil
}

func (o *MSSP) SubnegotiationString(subnegotiation []byte) (string, error) {
	config, err := telnet.ScanMSSP(subnegotiation)
	if err != nil {
		return "", err
	}
	return telnet.FormatMSSPConfig(config), nil
}
