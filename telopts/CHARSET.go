package telopts

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/moodclient/telnet"
	"golang.org/x/text/encoding/ianaindex"
)

const charset telnet.TelOptCode = telnet.OptionCHARSET

const charsetPriorityLock = "lock.charset"
const charsetPriorityLockDuration = 5 * time.Second

// CHARSETConfig lists the character sets this side is willing to request or
// accept via CHARSET negotiation (RFC 2066).
type CHARSETConfig struct {
	PreferredCharsets []string
	AllowAnyCharset   bool
}

func RegisterCHARSET(usage telnet.TelOptUsage, options CHARSETConfig) telnet.TelnetOption {
	charsets := make(map[string]struct{})
	for _, c := range options.PreferredCharsets {
		charsets[c] = struct{}{}
	}

	return &CHARSET{
		BaseTelOpt:           NewBaseTelOpt(charset, "CHARSET", usage),
		options:              options,
		localAllowedCharsets: charsets,
	}
}

type CHARSET struct {
	BaseTelOpt

	options CHARSETConfig

	bestRemoteEncoding   string
	localAllowedCharsets map[string]struct{}
}

func (o *CHARSET) writeRequest(charSets []string) error {
	var bufferSize int
	for _, cs := range charSets {
		bufferSize += len(cs) + 1
	}

	subnegotiation := bytes.NewBuffer(make([]byte, 0, bufferSize+1))
	if err := subnegotiation.WriteByte(telnet.CharsetREQUEST); err != nil {
		return err
	}

	for _, preferredCharset := range charSets {
		if err := subnegotiation.WriteByte(';'); err != nil {
			return err
		}
		if _, err := subnegotiation.Write([]byte(preferredCharset)); err != nil {
			return err
		}
	}

	return o.Interpreter().WriteCommand(telnet.Command{
		OpCode:         telnet.SB,
		Option:         charset,
		Subnegotiation: subnegotiation.Bytes(),
	})
}

func (o *CHARSET) writeAccept(acceptedCharset string) error {
	subnegotiation := make([]byte, 0, len(acceptedCharset)+1)
	subnegotiation = append(subnegotiation, telnet.CharsetACCEPTED)
	subnegotiation = append(subnegotiation, []byte(acceptedCharset)...)

	return o.Interpreter().WriteCommand(telnet.Command{
		OpCode:         telnet.SB,
		Option:         charset,
		Subnegotiation: subnegotiation,
	})
}

func (o *CHARSET) writeReject() error {
	return o.Interpreter().WriteCommand(telnet.Command{
		OpCode:         telnet.SB,
		Option:         charset,
		Subnegotiation: []byte{telnet.CharsetREJECTED},
	})
}

func (o *CHARSET) TransitionRemoteState(newState telnet.TelOptState) error {
	if err := o.BaseTelOpt.TransitionRemoteState(newState); err != nil {
		return err
	}

	if newState == telnet.TelOptNO {
		o.bestRemoteEncoding = ""
	}

	return nil
}

func (o *CHARSET) TransitionLocalState(newState telnet.TelOptState) error {
	if err := o.BaseTelOpt.TransitionLocalState(newState); err != nil {
		return err
	}

	if newState == telnet.TelOptNO {
		o.Interpreter().ClearPriorityLock(charsetPriorityLock)
		return nil
	}

	if newState != telnet.TelOptYES {
		return nil
	}

	// Nothing to request, so nothing to do once activated.
	if len(o.options.PreferredCharsets) == 0 {
		return nil
	}

	o.Interpreter().SetPriorityLock(charsetPriorityLock, charsetPriorityLockDuration)
	return o.writeRequest(o.options.PreferredCharsets)
}

func (o *CHARSET) isAcceptableCharset(charSet string) bool {
	if _, err := ianaindex.IANA.Encoding(charSet); err != nil {
		return false
	}

	if !o.options.AllowAnyCharset {
		if _, ok := o.localAllowedCharsets[charSet]; !ok {
			return false
		}
	}

	return true
}

func (o *CHARSET) subnegotiateREQUEST(subnegotiation []byte) error {
	o.bestRemoteEncoding = ""
	payload := subnegotiation[1:]
	if len(payload) == 0 {
		return o.writeReject()
	}

	sep := payload[0]
	charSetList := strings.Split(string(payload[1:]), string(sep))

	var bestCharSet string
	for _, candidate := range charSetList {
		if candidate == "UTF-8" {
			// Knowing the peer can handle UTF-8 is useful even if we don't
			// end up picking it, so promote the default charset regardless.
			changed, err := o.Interpreter().Charset().PromoteDefaultCharset("US-ASCII", "UTF-8")
			if err == nil && changed {
				o.Interpreter().RaiseCharsetChanged("UTF-8")
			}
		}

		if o.isAcceptableCharset(candidate) {
			bestCharSet = candidate
			break
		}
	}

	if bestCharSet == "" {
		return o.writeReject()
	}

	o.bestRemoteEncoding = bestCharSet

	if o.Interpreter().Side() == telnet.SideServer && o.Interpreter().HasPriorityLock(charsetPriorityLock) {
		// We have a locally-initiated negotiation in flight and are set up
		// to demand priority for it, so reject the peer's request.
		return o.writeReject()
	}

	if err := o.Interpreter().Charset().SetNegotiatedCharset(o.bestRemoteEncoding); err != nil {
		o.writeReject()
		return err
	}
	o.Interpreter().RaiseCharsetChanged(o.bestRemoteEncoding)

	return o.writeAccept(o.bestRemoteEncoding)
}

func (o *CHARSET) subnegotiateREJECTED() error {
	if o.LocalState() != telnet.TelOptYES {
		return nil
	}

	if o.bestRemoteEncoding != "" &&
		o.Interpreter().Charset().NegotiatedCharsetName() != o.bestRemoteEncoding &&
		o.Interpreter().Side() == telnet.SideServer {
		// The peer rejected us but did offer a charset we turned down in
		// favor of our own in-flight request- ask for it explicitly now.
		o.Interpreter().SetPriorityLock(charsetPriorityLock, charsetPriorityLockDuration)
		return o.writeRequest([]string{o.bestRemoteEncoding})
	}

	o.Interpreter().ClearPriorityLock(charsetPriorityLock)
	return nil
}

func (o *CHARSET) subnegotiateACCEPTED(subnegotiation []byte) error {
	if o.LocalState() != telnet.TelOptYES {
		return nil
	}

	charSet := string(subnegotiation[1:])
	if !o.isAcceptableCharset(charSet) {
		return fmt.Errorf("charset: peer sent ACCEPTED for invalid charset %s", charSet)
	}

	o.bestRemoteEncoding = charSet

	if err := o.Interpreter().Charset().SetNegotiatedCharset(charSet); err != nil {
		return err
	}
	o.Interpreter().RaiseCharsetChanged(charSet)

	return nil
}

func (o *CHARSET) Subnegotiate(subnegotiation []byte) error {
	if len(subnegotiation) == 0 {
		return errors.New("charset: received empty subnegotiation")
	}

	switch subnegotiation[0] {
	case telnet.CharsetREQUEST:
		err := o.subnegotiateREQUEST(subnegotiation)
		o.Interpreter().ClearPriorityLock(charsetPriorityLock)
		return err
	case telnet.CharsetREJECTED:
		// Depending on how we were rejected, the lock may stay held.
		return o.subnegotiateREJECTED()
	case telnet.CharsetACCEPTED:
		err := o.subnegotiateACCEPTED(subnegotiation)
		o.Interpreter().ClearPriorityLock(charsetPriorityLock)
		return err
	default:
		return o.BaseTelOpt.Subnegotiate(subnegotiation)
	}
}

func (o *CHARSET) SubnegotiationString(subnegotiation []byte) (string, error) {
	if len(subnegotiation) == 0 {
		return "", fmt.Errorf("charset: empty subnegotiation")
	}

	switch subnegotiation[0] {
	case telnet.CharsetREQUEST:
		return "REQUEST " + string(subnegotiation[1:]), nil
	case telnet.CharsetREJECTED:
		return "REJECTED", nil
	case telnet.CharsetACCEPTED:
		return "ACCEPTED " + string(subnegotiation[1:]), nil
	default:
		return o.BaseTelOpt.SubnegotiationString(subnegotiation)
	}
}
