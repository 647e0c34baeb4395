package telopts

import (
	"fmt"
	"sync"

	"github.com/moodclient/telnet"
)

const naws telnet.TelOptCode = telnet.OptionNAWS

func RegisterNAWS(usage telnet.TelOptUsage) telnet.TelnetOption {
	return &NAWS{
		BaseTelOpt: NewBaseTelOpt(naws, "NAWS", usage),
	}
}

// NAWS reports terminal window size changes (RFC 1073). The local size is
// whatever this side's adapter calls SetLocalSize with; the remote size is
// whatever the peer subnegotiates, delivered through telnet.NAWSHandler.
type NAWS struct {
	BaseTelOpt

	localLock  sync.Mutex
	remoteLock sync.Mutex

	localWidth   int
	localHeight  int
	remoteWidth  int
	remoteHeight int
}

func (o *NAWS) writeSizeSubnegotiation(i *telnet.Interpreter, width, height int) {
	i.WriteCommand(telnet.Command{
		OpCode: telnet.SB,
		Option: naws,
		Subnegotiation: []byte{
			byte((width >> 8) & 0xff),
			byte(width & 0xff),
			byte((height >> 8) & 0xff),
			byte(height & 0xff),
		},
	})
}

func (o *NAWS) TransitionLocalState(newState telnet.TelOptState) error {
	if err := o.BaseTelOpt.TransitionLocalState(newState); err != nil {
		return err
	}

	if newState != telnet.TelOptYES {
		return nil
	}

	o.localLock.Lock()
	width, height := o.localWidth, o.localHeight
	o.localLock.Unlock()

	// NAWS works by having the client subnegotiate its bounds to the server
	// right after activation, and again whenever the size changes.
	if width > 0 && height > 0 {
		o.writeSizeSubnegotiation(o.Interpreter(), width, height)
	}

	return nil
}

func (o *NAWS) Subnegotiate(subnegotiation []byte) error {
	if o.RemoteState() != telnet.TelOptYES {
		return nil
	}

	if len(subnegotiation) != 4 {
		return fmt.Errorf("naws: expected a four byte subnegotiation but received %d", len(subnegotiation))
	}

	width := (int(subnegotiation[0]) << 8) | int(subnegotiation[1])
	height := (int(subnegotiation[2]) << 8) | int(subnegotiation[3])

	o.remoteLock.Lock()
	o.remoteWidth = width
	o.remoteHeight = height
	o.remoteLock.Unlock()

	o.Interpreter().RaiseNAWS(width, height)

	return nil
}

func (o *NAWS) SubnegotiationString(subnegotiation []byte) (string, error) {
	return fmt.Sprintf("%+v", subnegotiation), nil
}

// SetLocalSize reports a new local terminal size. If NAWS is already active
// on the local half-channel, the new size is subnegotiated immediately;
// otherwise it's sent once negotiation completes. Exported with this exact
// signature to satisfy telnet's internal nawsCarrier interface, which
// SendNAWS uses to reach this plugin across the package boundary.
func (o *NAWS) SetLocalSize(i *telnet.Interpreter, newWidth, newHeight int) {
	o.localLock.Lock()
	unchanged := o.localWidth == newWidth && o.localHeight == newHeight
	o.localWidth = newWidth
	o.localHeight = newHeight
	o.localLock.Unlock()

	if unchanged {
		return
	}

	if o.LocalState() == telnet.TelOptYES {
		o.writeSizeSubnegotiation(i, newWidth, newHeight)
	}
}

// RemoteSize returns the most recently subnegotiated peer terminal size.
func (o *NAWS) RemoteSize() (width, height int) {
	o.remoteLock.Lock()
	defer o.remoteLock.Unlock()

	return o.remoteWidth, o.remoteHeight
}
