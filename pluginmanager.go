package telnet

import "fmt"

// pluginManager owns the topologically-ordered plugin list and drives
// negotiation dispatch (§4.3). Every built-in option module in this engine
// declares no dependencies (§8, property 7: MCCP, NAWS, CHARSET, ECHO,
// GMCP, MSSP, MSDP can each be negotiated independently of the others), but
// the ordering pass still runs so a third-party option can declare one.
type pluginManager struct {
	cache *telOptCache
}

func newPluginManager(options []TelnetOption) (*pluginManager, error) {
	cache := newTelOptCache()
	for _, opt := range options {
		if err := cache.add(opt); err != nil {
			return nil, err
		}
	}

	ordered, err := topoSortOptions(cache)
	if err != nil {
		return nil, err
	}
	cache.order = ordered

	return &pluginManager{cache: cache}, nil
}

// topoSortOptions runs Kahn's algorithm over each plugin's Dependencies(),
// falling back to registration order among mutually independent plugins so
// the result stays deterministic.
func topoSortOptions(cache *telOptCache) ([]TelnetOption, error) {
	indegree := make(map[TelOptCode]int, len(cache.order))
	dependents := make(map[TelOptCode][]TelOptCode)

	for _, opt := range cache.order {
		code := opt.Code()
		if _, ok := indegree[code]; !ok {
			indegree[code] = 0
		}
		for _, dep := range opt.Dependencies() {
			if _, ok := cache.byCode[dep]; !ok {
				return nil, fmt.Errorf("%w: option %s depends on unregistered option code %d", ErrInvalidConfiguration, opt.String(), dep)
			}
			indegree[code]++
			dependents[dep] = append(dependents[dep], code)
		}
	}

	var ready []TelOptCode
	for _, opt := range cache.order {
		if indegree[opt.Code()] == 0 {
			ready = append(ready, opt.Code())
		}
	}

	var result []TelnetOption
	visited := make(map[TelOptCode]bool)
	for len(ready) > 0 {
		code := ready[0]
		ready = ready[1:]
		if visited[code] {
			continue
		}
		visited[code] = true
		result = append(result, cache.byCode[code])

		for _, dependentCode := range dependents[code] {
			indegree[dependentCode]--
			if indegree[dependentCode] == 0 {
				ready = append(ready, dependentCode)
			}
		}
	}

	if len(result) != len(cache.order) {
		return nil, fmt.Errorf("%w: cyclic option dependency detected", ErrInvalidConfiguration)
	}

	return result, nil
}

// writeInitialOffers sends the startup WILL/DO for every plugin configured
// to offer its option, in dependency order.
func (m *pluginManager) writeInitialOffers(i *Interpreter) {
	for _, opt := range m.cache.order {
		usage := opt.Usage()

		if usage.offersLocal() {
			next, send := qStepOutgoing(opt.LocalState(), true)
			if send {
				i.WriteCommand(Command{OpCode: WILL, Option: opt.Code()})
			}
			_ = opt.TransitionLocalState(next)
		}

		if usage.offersRemote() {
			next, send := qStepOutgoing(opt.RemoteState(), true)
			if send {
				i.WriteCommand(Command{OpCode: DO, Option: opt.Code()})
			}
			_ = opt.TransitionRemoteState(next)
		}
	}
}

// processNegotiation dispatches one DO/DONT/WILL/WONT command through the
// Q-method state machine for the owning plugin, per §4.2.
func (m *pluginManager) processNegotiation(i *Interpreter, c Command) error {
	opt, ok := m.cache.get(c.Option)
	if !ok {
		// Unregistered option: auto-reply WONT/DONT, not fatal (§4.5).
		i.WriteCommand(c.Reject())
		return fmt.Errorf("%w: option code %d", ErrUnsupportedOption, c.Option)
	}

	isLocal := c.IsLocalRequest()
	peerWantsOn := c.IsNegotiationRequest()

	flag := opt.RemoteState()
	allowed := opt.Usage().allowsRemote()
	transition := opt.TransitionRemoteState
	if isLocal {
		flag = opt.LocalState()
		allowed = opt.Usage().allowsLocal()
		transition = opt.TransitionLocalState
	}

	outcome := qStepIncoming(flag, peerWantsOn, allowed)

	if outcome.SendVerb {
		verb := DONT
		if isLocal {
			verb = WONT
		}
		if outcome.VerbOn {
			if isLocal {
				verb = WILL
			} else {
				verb = DO
			}
		}
		i.WriteCommand(Command{OpCode: verb, Option: c.Option})
	}

	if err := transition(outcome.Next); err != nil {
		return fmt.Errorf("%w: %s transition: %v", ErrCallbackFailure, opt.String(), err)
	}

	return nil
}

// processSubnegotiation hands an SB ... SE payload to its owning plugin,
// once that option is active on at least one half-channel (§4.3).
func (m *pluginManager) processSubnegotiation(i *Interpreter, c Command) error {
	opt, ok := m.cache.get(c.Option)
	if !ok {
		// Subnegotiation for an option we never agreed to: ignore (§4.5).
		return nil
	}

	if opt.LocalState() != TelOptYES && opt.RemoteState() != TelOptYES {
		return nil
	}

	if err := opt.Subnegotiate(c.Subnegotiation); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProtocolViolation, opt.String(), err)
	}

	return nil
}
