package telnet

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MSSPValueKind discriminates an MSSP variable's value shape (§4.4.3).
type MSSPValueKind int

const (
	MSSPKindScalar MSSPValueKind = iota
	MSSPKindArray
)

// MSSPValue is a single MSSP variable's value: either a scalar string or a
// homogeneous array of strings. Nested maps from the original MSSP proposal
// (e.g. CRAWL_DELAY sub-tables some servers emit) flatten to an array of
// "key=value" strings- see NewMSSPNestedMap and DESIGN.md's Open Question
// note on why a second map-within-map representation wasn't added.
type MSSPValue struct {
	Kind   MSSPValueKind
	Scalar string
	Array  []string
}

func NewMSSPScalar(s string) MSSPValue { return MSSPValue{Kind: MSSPKindScalar, Scalar: s} }

func NewMSSPBool(b bool) MSSPValue {
	if b {
		return NewMSSPScalar("1")
	}
	return NewMSSPScalar("0")
}

func NewMSSPInt(n int) MSSPValue { return NewMSSPScalar(strconv.Itoa(n)) }

func NewMSSPArray(items ...string) MSSPValue {
	return MSSPValue{Kind: MSSPKindArray, Array: items}
}

// NewMSSPNestedMap flattens a nested map to an array of "key=value" strings,
// sorted by key for a deterministic encoding.
func NewMSSPNestedMap(m map[string]string) MSSPValue {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	arr := make([]string, 0, len(m))
	for _, k := range keys {
		arr = append(arr, k+"="+m[k])
	}
	return MSSPValue{Kind: MSSPKindArray, Array: arr}
}

// MSSPConfig is the keyed collection of variables exchanged via the MSSP
// subnegotiation (§4.4.3).
type MSSPConfig struct {
	Values map[string]MSSPValue
}

func NewMSSPConfig() *MSSPConfig {
	return &MSSPConfig{Values: make(map[string]MSSPValue)}
}

func (c *MSSPConfig) Set(name string, v MSSPValue) {
	c.Values[name] = v
}

func msspScanToken(buffer []byte, pos int) (string, int) {
	start := pos
	for pos < len(buffer) && buffer[pos] != MSDPVar && buffer[pos] != MSDPVal {
		pos++
	}
	return string(buffer[start:pos]), pos
}

// ScanMSSP tokenizes on VAR/VAL boundaries; a VAR followed by exactly one
// VAL yields a scalar, a VAR followed by more than one consecutive VAL run
// yields an array (§4.4.3).
func ScanMSSP(buffer []byte) (*MSSPConfig, error) {
	config := NewMSSPConfig()

	pos := 0
	for pos < len(buffer) {
		if buffer[pos] != MSDPVar {
			return nil, fmt.Errorf("%w: mssp: expected VAR at position %d", ErrProtocolViolation, pos)
		}
		pos++
		name, next := msspScanToken(buffer, pos)
		pos = next

		var values []string
		for pos < len(buffer) && buffer[pos] == MSDPVal {
			pos++
			val, next2 := msspScanToken(buffer, pos)
			pos = next2
			values = append(values, val)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: mssp: variable %q has no value", ErrProtocolViolation, name)
		}

		if len(values) == 1 {
			config.Values[name] = MSSPValue{Kind: MSSPKindScalar, Scalar: values[0]}
		} else {
			config.Values[name] = MSSPValue{Kind: MSSPKindArray, Array: values}
		}
	}

	return config, nil
}

// ReportMSSP serializes a config in sorted-key order: VAR name, then one VAL
// for a scalar or one VAL per element for an array.
func ReportMSSP(config *MSSPConfig) []byte {
	keys := make([]string, 0, len(config.Values))
	for k := range config.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := make([]byte, 0, 32)
	for _, k := range keys {
		buf = append(buf, MSDPVar)
		buf = append(buf, []byte(k)...)

		v := config.Values[k]
		switch v.Kind {
		case MSSPKindScalar:
			buf = append(buf, MSDPVal)
			buf = append(buf, []byte(v.Scalar)...)
		case MSSPKindArray:
			for _, item := range v.Array {
				buf = append(buf, MSDPVal)
				buf = append(buf, []byte(item)...)
			}
		}
	}
	return buf
}

// FormatMSSPConfig renders a decoded config for logging (SubnegotiationString
// use, not wire format).
func FormatMSSPConfig(config *MSSPConfig) string {
	keys := make([]string, 0, len(config.Values))
	for k := range config.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := config.Values[k]
		if v.Kind == MSSPKindScalar {
			parts = append(parts, fmt.Sprintf("%s=%q", k, v.Scalar))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v.Array))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
