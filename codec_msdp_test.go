package telnet

import "testing"

func buildMSDPPair(name string, val MSDPValue) []byte {
	buf := []byte{MSDPVar}
	buf = append(buf, []byte(name)...)
	buf = append(buf, MSDPVal)
	buf = msdpAppendValue(buf, val)
	return buf
}

func TestScanMSDPBareScalar(t *testing.T) {
	data := buildMSDPPair("ROOM", NewMSDPString("Town Square"))

	got, err := ScanMSDP(data)
	if err != nil {
		t.Fatalf("ScanMSDP error: %v", err)
	}
	want := map[string]MSDPValue{"ROOM": NewMSDPString("Town Square")}
	if !(MSDPValue{Kind: MSDPKindTable, Table: got}).Equal(MSDPValue{Kind: MSDPKindTable, Table: want}) {
		t.Errorf("ScanMSDP = %+v, want %+v", got, want)
	}
}

func TestScanMSDPArray(t *testing.T) {
	arr := NewMSDPArray(NewMSDPString("north"), NewMSDPString("south"))
	data := buildMSDPPair("EXITS", arr)

	got, err := ScanMSDP(data)
	if err != nil {
		t.Fatalf("ScanMSDP error: %v", err)
	}
	if !got["EXITS"].Equal(arr) {
		t.Errorf("ScanMSDP[EXITS] = %+v, want %+v", got["EXITS"], arr)
	}
}

func TestScanMSDPNestedTable(t *testing.T) {
	inner := NewMSDPTable(map[string]MSDPValue{
		"VNUM": NewMSDPString("42"),
	})
	data := buildMSDPPair("ROOM", inner)

	got, err := ScanMSDP(data)
	if err != nil {
		t.Fatalf("ScanMSDP error: %v", err)
	}
	if !got["ROOM"].Equal(inner) {
		t.Errorf("ScanMSDP[ROOM] = %+v, want %+v", got["ROOM"], inner)
	}
}

func TestScanMSDPExplicitOuterTable(t *testing.T) {
	table := map[string]MSDPValue{
		"ROOM": NewMSDPString("Town Square"),
		"HP":   NewMSDPString("100"),
	}
	wrapped := ReportMSDP(table)

	got, err := ScanMSDP(wrapped)
	if err != nil {
		t.Fatalf("ScanMSDP error: %v", err)
	}
	if !(MSDPValue{Kind: MSDPKindTable, Table: got}).Equal(MSDPValue{Kind: MSDPKindTable, Table: table}) {
		t.Errorf("ScanMSDP(ReportMSDP(m)) = %+v, want %+v", got, table)
	}
}

func TestScanMSDPRoundTrip(t *testing.T) {
	table := map[string]MSDPValue{
		"ROOM":  NewMSDPString("Town Square"),
		"EXITS": NewMSDPArray(NewMSDPString("north"), NewMSDPString("south")),
	}

	got, err := ScanMSDP(ReportMSDP(table))
	if err != nil {
		t.Fatalf("ScanMSDP error: %v", err)
	}

	for k, want := range table {
		gotVal, ok := got[k]
		if !ok {
			t.Fatalf("missing key %q after round trip", k)
		}
		if !gotVal.Equal(want) {
			t.Errorf("round trip[%s] = %+v, want %+v", k, gotVal, want)
		}
	}
}

func TestScanMSDPEmptyBuffer(t *testing.T) {
	got, err := ScanMSDP(nil)
	if err != nil {
		t.Fatalf("ScanMSDP(nil) error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ScanMSDP(nil) = %+v, want empty", got)
	}
}

func TestScanMSDPMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"missing VAR", []byte{MSDPVal, 'x'}},
		{"missing VAL", []byte{MSDPVar, 'R', 'O', 'O', 'M'}},
		{"unterminated table", []byte{MSDPTableOpen, MSDPVar, 'a', MSDPVal, 'b'}},
		{"unterminated array", []byte{MSDPVar, 'a', MSDPVal, MSDPArrayOpen, 'x'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ScanMSDP(tt.data); err == nil {
				t.Errorf("ScanMSDP(%v) expected error", tt.data)
			}
		})
	}
}

func TestMSDPValueEqualNilVsEmpty(t *testing.T) {
	a := MSDPValue{Kind: MSDPKindArray, Array: nil}
	b := MSDPValue{Kind: MSDPKindArray, Array: []MSDPValue{}}
	if !a.Equal(b) {
		t.Error("nil array and empty array of the same kind should compare equal")
	}
}

func TestReportMSDPWrapsInTableOpenClose(t *testing.T) {
	buf := ReportMSDP(map[string]MSDPValue{"HP": NewMSDPString("100")})
	if buf[0] != MSDPTableOpen {
		t.Errorf("ReportMSDP should start with MSDPTableOpen, got %v", buf[0])
	}
	if buf[len(buf)-1] != MSDPTableClose {
		t.Errorf("ReportMSDP should end with MSDPTableClose, got %v", buf[len(buf)-1])
	}
}
