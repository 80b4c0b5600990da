package bpf

import "testing"

// Checks that a rule gets translated correctly into BPF statements.
func TestRuleBPFOutput(t *testing.T) {
	eq, err := NewCondition(0, Eq, 1)
	if err != nil {
		t.Fatal(err)
	}
	maskedEq, err := NewMaskedEqCondition(2, 0b1010, 14)
	if err != nil {
		t.Fatal(err)
	}
	rule := NewRule([]Condition{eq, maskedEq}, ActionAllow)

	// Little-endian: msb_offset=4, lsb_offset=0.
	const msbOffset, lsbOffset = 4, 0

	want := Program{
		Stmt(0x05, 1),
		Stmt(0x05, 12),
		Stmt(0x20, 32+msbOffset),
		Stmt(0x54, 0),
		Jump(0x15, 0, 0, 8),
		Stmt(0x20, 32+lsbOffset),
		Stmt(0x54, 0b1010),
		Jump(0x15, 14&0b1010, 0, 5),
		Stmt(0x20, 16+msbOffset),
		Jump(0x15, 0, 0, 3),
		Stmt(0x20, 16+lsbOffset),
		Jump(0x15, 1, 0, 1),
		Stmt(0x06, 0x7fff0000),
	}

	got := rule.IntoBPF()
	if !programsEqual(got, want) {
		t.Errorf("IntoBPF() =\n%+v\nwant\n%+v", got, want)
	}
}

// Checks that a rule with too many conditions is translated correctly
// using exactly one inserted helper-jump triplet.
func TestRuleManyConditionsBPFOutput(t *testing.T) {
	conditions := make([]Condition, 0, 43)
	for i := 0; i < 42; i++ {
		c, err := NewMaskedEqCondition(0, 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		conditions = append(conditions, c)
	}
	eq, err := NewCondition(0, Eq, 0)
	if err != nil {
		t.Fatal(err)
	}
	conditions = append(conditions, eq)
	rule := NewRule(conditions, ActionAllow)

	const msbOffset, lsbOffset = 4, 0

	want := Program{
		Stmt(0x05, 1),
		Stmt(0x05, 6),
		Stmt(0x20, 16+msbOffset),
		Jump(0x15, 0, 0, 3),
		Stmt(0x20, 16+lsbOffset),
		Jump(0x15, 0, 0, 1),
		Stmt(0x05, 2),
		Stmt(0x05, 254),
		Stmt(0x05, 254),
	}
	offset := 253
	for i := 0; i < 42; i++ {
		offset -= 6
		want = append(want,
			Stmt(0x20, 16+msbOffset),
			Stmt(0x54, 0),
			Jump(0x15, 0, 0, uint8(offset+3)),
			Stmt(0x20, 16+lsbOffset),
			Stmt(0x54, 0),
			Jump(0x15, 0, 0, uint8(offset)),
		)
	}
	want = append(want, Stmt(0x06, 0x7fff0000))

	got := rule.IntoBPF()
	if !programsEqual(got, want) {
		t.Errorf("IntoBPF() length = %d, want %d", len(got), len(want))
		n := len(got)
		if len(want) < n {
			n = len(want)
		}
		for i := 0; i < n; i++ {
			if got[i] != want[i] {
				t.Errorf("instruction %d: got %+v, want %+v", i, got[i], want[i])
			}
		}
	}
}
