package telnet

import (
	"fmt"
	"sort"
	"strings"
)

// MSDPValueKind discriminates the recursive MSDP value sum type (§3, "MSDP
// value"). Re-architected as an explicit tagged variant rather than a
// dynamically-typed value, per the same rationale DESIGN NOTES gives for
// MSSP's extended map.
type MSDPValueKind int

const (
	MSDPKindString MSDPValueKind = iota
	MSDPKindArray
	MSDPKindTable
)

// MSDPValue is a recursive MSDP payload node: a scalar string, an ordered
// array of values, or a table keyed by name.
type MSDPValue struct {
	Kind   MSDPValueKind
	String string
	Array  []MSDPValue
	Table  map[string]MSDPValue
}

func NewMSDPString(s string) MSDPValue { return MSDPValue{Kind: MSDPKindString, String: s} }

func NewMSDPArray(values ...MSDPValue) MSDPValue {
	return MSDPValue{Kind: MSDPKindArray, Array: values}
}

func NewMSDPTable(table map[string]MSDPValue) MSDPValue {
	return MSDPValue{Kind: MSDPKindTable, Table: table}
}

// Equal compares two MSDP values structurally. Used in place of
// reflect.DeepEqual so a nil Array/Table and an empty one of the same kind
// compare equal.
func (v MSDPValue) Equal(other MSDPValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case MSDPKindString:
		return v.String == other.String
	case MSDPKindArray:
		if len(v.Array) != len(other.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	case MSDPKindTable:
		if len(v.Table) != len(other.Table) {
			return false
		}
		for k, val := range v.Table {
			otherVal, ok := other.Table[k]
			if !ok || !val.Equal(otherVal) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func msdpIsStructural(b byte) bool {
	switch b {
	case MSDPVar, MSDPVal, MSDPTableOpen, MSDPTableClose, MSDPArrayOpen, MSDPArrayClose:
		return true
	default:
		return false
	}
}

func msdpScanToken(buffer []byte, pos int) (string, int) {
	start := pos
	for pos < len(buffer) && !msdpIsStructural(buffer[pos]) {
		pos++
	}
	return string(buffer[start:pos]), pos
}

// msdpParseValue implements the grammar from §4.4.4: value := bytes |
// ARRAY_OPEN value* ARRAY_CLOSE | TABLE_OPEN (VAR bytes VAL value)*
// TABLE_CLOSE. Each array element may be preceded by a VAL byte, which is
// skipped; msdpAppendValue writes one before every element so adjacent
// string elements stay separate.
func msdpParseValue(buffer []byte, pos int) (MSDPValue, int, error) {
	if pos >= len(buffer) {
		return MSDPValue{}, pos, fmt.Errorf("%w: msdp: unexpected end of payload", ErrProtocolViolation)
	}

	switch buffer[pos] {
	case MSDPTableOpen:
		pos++
		table := make(map[string]MSDPValue)
		for pos < len(buffer) && buffer[pos] != MSDPTableClose {
			if buffer[pos] != MSDPVar {
				return MSDPValue{}, pos, fmt.Errorf("%w: msdp: expected VAR inside table", ErrProtocolViolation)
			}
			pos++
			name, next := msdpScanToken(buffer, pos)
			pos = next
			if pos >= len(buffer) || buffer[pos] != MSDPVal {
				return MSDPValue{}, pos, fmt.Errorf("%w: msdp: expected VAL after name %q", ErrProtocolViolation, name)
			}
			pos++
			val, next2, err := msdpParseValue(buffer, pos)
			if err != nil {
				return MSDPValue{}, pos, err
			}
			pos = next2
			table[name] = val
		}
		if pos >= len(buffer) {
			return MSDPValue{}, pos, fmt.Errorf("%w: msdp: unterminated table", ErrProtocolViolation)
		}
		return MSDPValue{Kind: MSDPKindTable, Table: table}, pos + 1, nil

	case MSDPArrayOpen:
		pos++
		var values []MSDPValue
		for pos < len(buffer) && buffer[pos] != MSDPArrayClose {
			if buffer[pos] == MSDPVal {
				pos++
			}
			val, next, err := msdpParseValue(buffer, pos)
			if err != nil {
				return MSDPValue{}, pos, err
			}
			pos = next
			values = append(values, val)
		}
		if pos >= len(buffer) {
			return MSDPValue{}, pos, fmt.Errorf("%w: msdp: unterminated array", ErrProtocolViolation)
		}
		return MSDPValue{Kind: MSDPKindArray, Array: values}, pos + 1, nil

	default:
		s, next := msdpScanToken(buffer, pos)
		return MSDPValue{Kind: MSDPKindString, String: s}, next, nil
	}
}

// ScanMSDP decodes an MSDP subnegotiation payload into its outermost table
// (§4.4.4, entry point scan). The payload may either be wrapped in an
// explicit TABLE_OPEN/TABLE_CLOSE pair (as report produces) or be a bare
// sequence of VAR/VAL pairs, the form most MUD servers send for a plain
// REPORT.
func ScanMSDP(buffer []byte) (map[string]MSDPValue, error) {
	if len(buffer) == 0 {
		return map[string]MSDPValue{}, nil
	}

	if buffer[0] == MSDPTableOpen {
		val, next, err := msdpParseValue(buffer, 0)
		if err != nil {
			return nil, err
		}
		if next != len(buffer) {
			return nil, fmt.Errorf("%w: msdp: trailing bytes after outer table", ErrProtocolViolation)
		}
		return val.Table, nil
	}

	table := make(map[string]MSDPValue)
	pos := 0
	for pos < len(buffer) {
		if buffer[pos] != MSDPVar {
			return nil, fmt.Errorf("%w: msdp: expected VAR at top level", ErrProtocolViolation)
		}
		pos++
		name, next := msdpScanToken(buffer, pos)
		pos = next
		if pos >= len(buffer) || buffer[pos] != MSDPVal {
			return nil, fmt.Errorf("%w: msdp: expected VAL after name %q", ErrProtocolViolation, name)
		}
		pos++
		val, next2, err := msdpParseValue(buffer, pos)
		if err != nil {
			return nil, err
		}
		pos = next2
		table[name] = val
	}
	return table, nil
}

func msdpAppendValue(buf []byte, v MSDPValue) []byte {
	switch v.Kind {
	case MSDPKindString:
		return append(buf, []byte(v.String)...)
	case MSDPKindArray:
		buf = append(buf, MSDPArrayOpen)
		for _, e := range v.Array {
			buf = append(buf, MSDPVal)
			buf = msdpAppendValue(buf, e)
		}
		return append(buf, MSDPArrayClose)
	case MSDPKindTable:
		buf = append(buf, MSDPTableOpen)
		buf = msdpAppendTableBody(buf, v.Table)
		return append(buf, MSDPTableClose)
	default:
		return buf
	}
}

func msdpAppendTableBody(buf []byte, table map[string]MSDPValue) []byte {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		buf = append(buf, MSDPVar)
		buf = append(buf, []byte(k)...)
		buf = append(buf, MSDPVal)
		buf = msdpAppendValue(buf, table[k])
	}
	return buf
}

// ReportMSDP serializes a table as the outermost TABLE_OPEN ... TABLE_CLOSE
// wrapped payload (§4.4.4, serializer report). Keys are emitted in sorted
// order for a deterministic wire encoding; scan(report(m)) == m holds
// regardless, since map equality doesn't depend on key order.
func ReportMSDP(table map[string]MSDPValue) []byte {
	buf := make([]byte, 0, 16)
	buf = append(buf, MSDPTableOpen)
	buf = msdpAppendTableBody(buf, table)
	buf = append(buf, MSDPTableClose)
	return buf
}

func msdpValueString(v MSDPValue) string {
	switch v.Kind {
	case MSDPKindString:
		return fmt.Sprintf("%q", v.String)
	case MSDPKindArray:
		items := make([]string, 0, len(v.Array))
		for _, e := range v.Array {
			items = append(items, msdpValueString(e))
		}
		return "[" + strings.Join(items, ",") + "]"
	case MSDPKindTable:
		return "{" + msdpTableString(v.Table) + "}"
	default:
		return ""
	}
}

func msdpTableString(table map[string]MSDPValue) string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+msdpValueString(table[k]))
	}
	return strings.Join(parts, ",")
}

// FormatMSDPReport renders a decoded report for logging (SubnegotiationString
// use, not wire format).
func FormatMSDPReport(report map[string]MSDPValue) string {
	return "{" + msdpTableString(report) + "}"
}
