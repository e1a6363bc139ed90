package domain

import "testing"

func TestRRType_String(t *testing.T) {
	tests := []struct {
		t    RRType
		want string
	}{
		{RRTypeA, "A"},
		{RRTypeAAAA, "AAAA"},
		{RRTypeMX, "MX"},
		{RRTypeANY, "ANY"},
		{RRType(999), "UNKNOWN(999)"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("RRType(%d).String() = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestRRTypeFromTag(t *testing.T) {
	tests := []struct {
		tag  string
		want RRType
	}{
		{"a", RRTypeA},
		{"A", RRTypeA},
		{" aaaa ", RRTypeAAAA},
		{"cname", RRTypeCNAME},
		{"bogus", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := RRTypeFromTag(tt.tag); got != tt.want {
			t.Errorf("RRTypeFromTag(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}

func TestRRType_Tag(t *testing.T) {
	if got := RRTypeA.Tag(); got != "a" {
		t.Errorf("RRTypeA.Tag() = %q, want %q", got, "a")
	}
}

func TestRRClass_String(t *testing.T) {
	tests := []struct {
		c    RRClass
		want string
	}{
		{RRClassIN, "IN"},
		{RRClassCH, "CH"},
		{RRClassHS, "HS"},
		{RRClassANY, "ANY"},
		{RRClass(42), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("RRClass(%d).String() = %q, want %q", tt.c, got, tt.want)
		}
	}
}
