package telnet

import "fmt"

// TelOptUsage declares, per option, which of the four negotiation postures
// from §4.2 this interpreter takes: whether the local half-channel is
// offered (we send WILL at startup) or merely allowed (we accept peer DO
// but never ask), and the same pair for the remote half-channel. Leaving
// both bits for a side clear means "refused"- the engine answers any
// DO/WILL for that half with WONT/DONT.
type TelOptUsage uint8

const (
	// AllowLocal accepts a peer-initiated DO (they ask us to enable).
	AllowLocal TelOptUsage = 1 << iota
	// RequestLocal sends WILL at startup, in addition to allowing it.
	RequestLocal
	// AllowRemote accepts a peer-initiated WILL (they offer to enable on
	// their end).
	AllowRemote
	// RequestRemote sends DO at startup, in addition to allowing it.
	RequestRemote
)

func (u TelOptUsage) allowsLocal() bool  { return u&(AllowLocal|RequestLocal) != 0 }
func (u TelOptUsage) allowsRemote() bool { return u&(AllowRemote|RequestRemote) != 0 }
func (u TelOptUsage) offersLocal() bool  { return u&RequestLocal != 0 }
func (u TelOptUsage) offersRemote() bool { return u&RequestRemote != 0 }

// TelnetOption is implemented by every option module (plugin). A plugin
// owns its own mutable per-option state (§3), its negotiation policy via
// Usage, and- if the option carries a structured payload- Subnegotiate.
type TelnetOption interface {
	// Code is the option number this plugin claims. Must be callable on a
	// zero-value receiver, before Initialize.
	Code() TelOptCode
	// String is the option's short display name ("ECHO", "NAWS", ...).
	String() string
	// Usage returns this plugin's negotiation posture for the interpreter's
	// configured role.
	Usage() TelOptUsage
	// Dependencies lists other option codes that must be registered (not
	// necessarily active) before this plugin's initial offers are written.
	// Every built-in option in this engine declares an empty list (§8,
	// property 7)- the hook exists for third-party options layered on top.
	Dependencies() []TelOptCode

	// Initialize is called once, when the plugin is added to an
	// Interpreter, before any negotiation begins.
	Initialize(i *Interpreter)

	LocalState() TelOptState
	RemoteState() TelOptState

	// TransitionLocalState is invoked by the plugin manager whenever the
	// local half-channel's Q-method flag changes.
	TransitionLocalState(newState TelOptState) error
	// TransitionRemoteState is the remote half-channel's counterpart.
	TransitionRemoteState(newState TelOptState) error

	// Subnegotiate handles an SB ... SE payload addressed to this option.
	// Called only once the option is active on at least one half-channel.
	Subnegotiate(payload []byte) error
	// SubnegotiationString renders a payload for logging.
	SubnegotiationString(payload []byte) (string, error)
}

// TelOptFactory constructs a fresh plugin instance. Builders register
// factories directly (REDESIGN FLAGS, "Plugin discovery")- there is no
// reflection-based registration.
type TelOptFactory func() TelnetOption

// telOptCache is the plugin manager's lookup table: the ordered set of
// plugins an Interpreter was built with, keyed by option code.
type telOptCache struct {
	byCode map[TelOptCode]TelnetOption
	order  []TelnetOption
}

func newTelOptCache() *telOptCache {
	return &telOptCache{byCode: make(map[TelOptCode]TelnetOption)}
}

func (c *telOptCache) add(opt TelnetOption) error {
	code := opt.Code()
	if _, exists := c.byCode[code]; exists {
		return fmt.Errorf("%w: option code %d registered twice (%s)", ErrInvalidConfiguration, code, opt.String())
	}
	c.byCode[code] = opt
	c.order = append(c.order, opt)
	return nil
}

func (c *telOptCache) get(code TelOptCode) (TelnetOption, bool) {
	opt, ok := c.byCode[code]
	return opt, ok
}

// GetTelOpt retrieves a plugin by type, for test/inspection use from the
// façade (§4.3, "Lookup"). It returns ok=false if no plugin of that type is
// registered.
func GetTelOpt[T TelnetOption](i *Interpreter) (t T, ok bool) {
	for _, opt := range i.plugins.cache.order {
		if typed, matches := opt.(T); matches {
			return typed, true
		}
	}
	return t, false
}
