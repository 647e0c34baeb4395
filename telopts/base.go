// Package telopts provides the built-in option modules (ECHO, NAWS,
// CHARSET, MSSP, MSDP, GMCP, MCCP2, MCCP3) that plug into a
// telnet.Interpreter via telnet.InterpreterBuilder.RegisterTelOpts.
package telopts

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/moodclient/telnet"
)

// BaseTelOpt supplies the bookkeeping every option module needs- its code,
// display name, negotiation posture, and the two Q-method flags- so each
// concrete plugin only has to implement Subnegotiate and whatever reacts to
// a state transition.
type BaseTelOpt struct {
	code        telnet.TelOptCode
	name        string
	interpreter *telnet.Interpreter
	localState  uint32
	remoteState uint32
	usage       telnet.TelOptUsage
}

func NewBaseTelOpt(code telnet.TelOptCode, name string, usage telnet.TelOptUsage) BaseTelOpt {
	return BaseTelOpt{
		code:  code,
		name:  name,
		usage: usage,
	}
}

func (o *BaseTelOpt) Code() telnet.TelOptCode {
	return o.code
}

func (o *BaseTelOpt) String() string {
	return o.name
}

func (o *BaseTelOpt) LocalState() telnet.TelOptState {
	return telnet.TelOptState(atomic.LoadUint32(&o.localState))
}

func (o *BaseTelOpt) RemoteState() telnet.TelOptState {
	return telnet.TelOptState(atomic.LoadUint32(&o.remoteState))
}

func (o *BaseTelOpt) Usage() telnet.TelOptUsage {
	return o.usage
}

// Dependencies returns no dependencies. Every built-in option module in this
// package negotiates independently of the others; embed and override this
// method to add one.
func (o *BaseTelOpt) Dependencies() []telnet.TelOptCode {
	return nil
}

func (o *BaseTelOpt) Initialize(i *telnet.Interpreter) {
	o.interpreter = i
}

// Interpreter returns the owning Interpreter, available once Initialize has
// run.
func (o *BaseTelOpt) Interpreter() *telnet.Interpreter {
	return o.interpreter
}

func (o *BaseTelOpt) TransitionLocalState(newState telnet.TelOptState) error {
	atomic.StoreUint32(&o.localState, uint32(newState))
	return nil
}

func (o *BaseTelOpt) TransitionRemoteState(newState telnet.TelOptState) error {
	atomic.StoreUint32(&o.remoteState, uint32(newState))
	return nil
}

func (o *BaseTelOpt) Subnegotiate(subnegotiation []byte) error {
	return fmt.Errorf("%s: unexpected subnegotiation %+v", strings.ToLower(o.name), subnegotiation)
}

func (o *BaseTelOpt) SubnegotiationString(subnegotiation []byte) (string, error) {
	return "", fmt.Errorf("%s: unexpected subnegotiation %+v", strings.ToLower(o.name), subnegotiation)
}
