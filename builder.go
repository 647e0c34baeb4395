package telnet

import (
	"fmt"
	"log/slog"
)

// InterpreterBuilder assembles an Interpreter: charset defaults, the plugin
// roster, and the callback slots, mirroring the teacher's TerminalConfig +
// constructor-registration pattern (REDESIGN FLAGS, "Plugin discovery")
// but as a fluent chain instead of a single struct literal.
type InterpreterBuilder struct {
	side                TerminalSide
	defaultCharsetName  string
	fallbackCharsetName string
	charsetUsage        CharsetUsage
	telOpts             []TelnetOption
	hooks               EventHooks
	logger              *slog.Logger
}

// NewInterpreterBuilder starts a builder for the given role. DefaultCharset
// defaults to US-ASCII per RFC 854 until WithDefaultCharset overrides it.
func NewInterpreterBuilder(side TerminalSide) *InterpreterBuilder {
	return &InterpreterBuilder{
		side:               side,
		defaultCharsetName: "US-ASCII",
	}
}

// WithDefaultCharset sets the charset used before (or absent) CHARSET
// negotiation.
func (b *InterpreterBuilder) WithDefaultCharset(name string) *InterpreterBuilder {
	b.defaultCharsetName = name
	return b
}

// WithFallbackCharset records a fallback charset name on the builder. Build
// does not use it: a line that fails to decode under the current charset is
// not retried under another one.
func (b *InterpreterBuilder) WithFallbackCharset(name string) *InterpreterBuilder {
	b.fallbackCharsetName = name
	return b
}

// WithCharsetUsage selects whether a CHARSET-negotiated encoding applies
// immediately or only once TRANSMIT-BINARY is active.
func (b *InterpreterBuilder) WithCharsetUsage(usage CharsetUsage) *InterpreterBuilder {
	b.charsetUsage = usage
	return b
}

// WithLogger overrides the structured logger used for recoverable protocol
// anomalies (§7). There is no process-wide default logger; passing nil
// silences this logging path entirely (DESIGN NOTES, "Global logger").
func (b *InterpreterBuilder) WithLogger(logger *slog.Logger) *InterpreterBuilder {
	b.logger = logger
	return b
}

// WithHooks installs the callback slots the built Interpreter will invoke.
func (b *InterpreterBuilder) WithHooks(hooks EventHooks) *InterpreterBuilder {
	b.hooks = hooks
	return b
}

// RegisterTelOpts adds one or more option module instances, typically built
// via the telopts package's Register* constructors.
func (b *InterpreterBuilder) RegisterTelOpts(opts ...TelnetOption) *InterpreterBuilder {
	b.telOpts = append(b.telOpts, opts...)
	return b
}

// Build validates the configuration and constructs the Interpreter. On
// success, the interpreter's worker is already running and, in either role,
// the initial WILL/DO offers for every option whose usage requests them have
// already been written through EventHooks.OnNegotiation.
func (b *InterpreterBuilder) Build() (*Interpreter, error) {
	if b.side != SideClient && b.side != SideServer {
		return nil, fmt.Errorf("%w: builder side must be SideClient or SideServer", ErrInvalidConfiguration)
	}

	charset, err := NewCharset(b.defaultCharsetName, b.charsetUsage)
	if err != nil {
		return nil, fmt.Errorf("%w: default charset %q: %v", ErrInvalidConfiguration, b.defaultCharsetName, err)
	}

	plugins, err := newPluginManager(b.telOpts)
	if err != nil {
		return nil, err
	}

	i := newInterpreter(b.side, charset, plugins, b.hooks, b.logger)

	for _, opt := range plugins.cache.order {
		opt.Initialize(i)
	}

	plugins.writeInitialOffers(i)

	return i, nil
}
