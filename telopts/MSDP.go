package telopts

import (
	"github.com/moodclient/telnet"
)

const msdp telnet.TelOptCode = telnet.OptionMSDP

func RegisterMSDP(usage telnet.TelOptUsage) telnet.TelnetOption {
	return &MSDP{
		BaseTelOpt: NewBaseTelOpt(msdp, "MSDP", usage),
	}
}

// MSDP carries the structured variable tree described in §4.4.4: a table
// scan/report pair with nested arrays and sub-tables. Unlike MSSP, which
// advertises server identity once, MSDP is meant for repeated back-and-forth
// reports (e.g. a ROOM report after every move), so this plugin has no
// config provider of its own- callers drive it with SendReport.
type MSDP struct {
	BaseTelOpt
}

func (o *MSDP) Subnegotiate(subnegotiation []byte) error {
	report, err := telnet.ScanMSDP(subnegotiation)
	if err != nil {
		return err
	}

	o.Interpreter().RaiseMSDP(report)
	return nil
}

func (o *MSDP) SubnegotiationString(subnegotiation []byte) (string, error) {
	report, err := telnet.ScanMSDP(subnegotiation)
	if err != nil {
		return "", err
	}
	return telnet.FormatMSDPReport(report), nil
}

// SendReport encodes and sends a MSDP table, wrapped in TABLE_OPEN/
// TABLE_CLOSE per the serializer in §4.4.4.
func (o *MSDP) SendReport(report map[string]telnet.MSDPValue) error {
	return o.Interpreter().WriteCommand(telnet.Command{
		OpCode:         telnet.SB,
		Option:         msdp,
		Subnegotiation: telnet.ReportMSDP(report),
	})
}
