// Package telnetutil provides optional helpers layered on top of the
// telnet package's EventHooks- nothing here is required to drive a session.
package telnetutil

import (
	"context"
	"log/slog"

	"github.com/moodclient/telnet"
)

// LevelNone is below every standard slog level; set a DebugLogConfig field
// to this to silence that one category entirely.
const LevelNone slog.Level = -8

// DebugLogConfig chooses the log level used for each category of event this
// module raises. Set a field to LevelNone to skip logging that category.
type DebugLogConfig struct {
	ErrorLevel       slog.Level
	NegotiationLevel slog.Level
	SubmitLevel      slog.Level
	EchoStateLevel   slog.Level
	NAWSLevel        slog.Level
	CharsetLevel     slog.Level
	MSSPLevel        slog.Level
	GMCPLevel        slog.Level
	MSDPLevel        slog.Level
	CompressionLevel slog.Level
}

// NewDebugLog wraps hooks with one that logs every event at its configured
// level through logger, then calls through to whatever hook was already
// installed in that slot. The builder's single EventHooks struct holds one
// callback per slot, so unlike the teacher's Register*Hook multi-subscriber
// pattern, debug logging here composes by wrapping rather than by adding a
// second subscriber- call this last, right before WithHooks, to log
// everything the application's own hooks also see.
func NewDebugLog(logger *slog.Logger, config DebugLogConfig, hooks telnet.EventHooks) telnet.EventHooks {
	wrapped := hooks

	if config.ErrorLevel != LevelNone {
		prev := hooks.OnError
		wrapped.OnError = func(i *telnet.Interpreter, err error) {
			logger.LogAttrs(context.Background(), config.ErrorLevel, "telnet: encountered error", slog.Any("error", err))
			if prev != nil {
				prev(i, err)
			}
		}
	}

	if config.NegotiationLevel != LevelNone {
		prev := hooks.OnNegotiation
		wrapped.OnNegotiation = func(i *telnet.Interpreter, data []byte) {
			logger.LogAttrs(context.Background(), config.NegotiationLevel, "telnet: wrote bytes", slog.Int("length", len(data)))
			if prev != nil {
				prev(i, data)
			}
		}
	}

	if config.SubmitLevel != LevelNone {
		prev := hooks.OnSubmit
		wrapped.OnSubmit = func(i *telnet.Interpreter, line []byte, encodingName string) {
			logger.LogAttrs(context.Background(), config.SubmitLevel, "telnet: submitted line",
				slog.String("encoding", encodingName), slog.Int("length", len(line)))
			if prev != nil {
				prev(i, line, encodingName)
			}
		}
	}

	if config.EchoStateLevel != LevelNone {
		prev := hooks.OnEchoState
		wrapped.OnEchoState = func(i *telnet.Interpreter, remoteWillEcho bool) {
			logger.LogAttrs(context.Background(), config.EchoStateLevel, "telnet: echo state changed", slog.Bool("remoteWillEcho", remoteWillEcho))
			if prev != nil {
				prev(i, remoteWillEcho)
			}
		}
	}

	if config.NAWSLevel != LevelNone {
		prev := hooks.OnNAWS
		wrapped.OnNAWS = func(i *telnet.Interpreter, width, height int) {
			logger.LogAttrs(context.Background(), config.NAWSLevel, "telnet: window size reported",
				slog.Int("width", width), slog.Int("height", height))
			if prev != nil {
				prev(i, width, height)
			}
		}
	}

	if config.CharsetLevel != LevelNone {
		prev := hooks.OnCharset
		wrapped.OnCharset = func(i *telnet.Interpreter, encodingName string) {
			logger.LogAttrs(context.Background(), config.CharsetLevel, "telnet: charset changed", slog.String("encoding", encodingName))
			if prev != nil {
				prev(i, encodingName)
			}
		}
	}

	if config.MSSPLevel != LevelNone {
		prev := hooks.OnMSSP
		wrapped.OnMSSP = func(i *telnet.Interpreter, mssp *telnet.MSSPConfig) {
			logger.LogAttrs(context.Background(), config.MSSPLevel, "telnet: MSSP config received", slog.Int("variables", len(mssp.Values)))
			if prev != nil {
				prev(i, mssp)
			}
		}
	}

	if config.GMCPLevel != LevelNone {
		prev := hooks.OnGMCP
		wrapped.OnGMCP = func(i *telnet.Interpreter, packageName, message string) {
			logger.LogAttrs(context.Background(), config.GMCPLevel, "telnet: GMCP message received", slog.String("package", packageName))
			if prev != nil {
				prev(i, packageName, message)
			}
		}
	}

	if config.MSDPLevel != LevelNone {
		prev := hooks.OnMSDP
		wrapped.OnMSDP = func(i *telnet.Interpreter, report map[string]telnet.MSDPValue) {
			logger.LogAttrs(context.Background(), config.MSDPLevel, "telnet: MSDP report received", slog.Int("keys", len(report)))
			if prev != nil {
				prev(i, report)
			}
		}
	}

	if config.CompressionLevel != LevelNone {
		prev := hooks.OnCompression
		wrapped.OnCompression = func(i *telnet.Interpreter, version int, enabled bool) {
			logger.LogAttrs(context.Background(), config.CompressionLevel, "telnet: compression state changed",
				slog.Int("version", version), slog.Bool("enabled", enabled))
			if prev != nil {
				prev(i, version, enabled)
			}
		}
	}

	return wrapped
}
