package permission

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/tinoosan/groupledger/internal/errs"
)

func TestAllHoldsEveryCapability(t *testing.T) {
	all := All()
	if got := all.Len(); got != 13 {
		t.Fatalf("All().Len() = %d, want 13", got)
	}
	for _, c := range Capabilities() {
		if !all.Has(c) {
			t.Errorf("All() missing %s", c)
		}
	}
	if None().Len() != 0 {
		t.Errorf("None() should be empty")
	}
}

func TestWithWithout(t *testing.T) {
	s := Of(ViewAccounts, ManageGroup)
	if !s.Has(ViewAccounts) || !s.Has(ManageGroup) || s.Has(ViewBudgets) {
		t.Fatalf("unexpected set %s", s)
	}
	s2 := s.Without(ManageGroup)
	if s2.Has(ManageGroup) {
		t.Errorf("Without did not remove ManageGroup")
	}
	if !s.Has(ManageGroup) {
		t.Errorf("Without mutated the receiver")
	}
	if s.With(Capability(200)) != s {
		t.Errorf("With(invalid) changed the set")
	}
}

func TestJSONShape(t *testing.T) {
	b, err := json.Marshal(Of(ManageOwnAccounts))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]bool
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(m) != 13 {
		t.Fatalf("expected 13 flags, got %d: %s", len(m), b)
	}
	if !m["canManageOwnAccounts"] || m["canManageGroup"] {
		t.Errorf("unexpected flags: %s", b)
	}

	var s Set
	if err := json.Unmarshal([]byte(`{"canViewBudgets":true,"canManageGroup":false}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s != Of(ViewBudgets) {
		t.Errorf("got %s, want [canViewBudgets]", s)
	}
}

func TestUnknownFlagRejected(t *testing.T) {
	var s Set
	err := json.Unmarshal([]byte(`{"canFly":true}`), &s)
	if !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	if _, err := Parse("canManageGroup"); err != nil {
		t.Errorf("Parse known name: %v", err)
	}
}

func TestBitsRoundTripDropsUnknownBits(t *testing.T) {
	s := Of(ViewTransactions, ManageGroupAccounts)
	if FromBits(s.Bits()) != s {
		t.Errorf("FromBits(Bits()) changed the set")
	}
	if FromBits(1<<15) != None() {
		t.Errorf("unknown bit survived FromBits")
	}
}

func TestGroupsCoverMatrixOnce(t *testing.T) {
	seen := map[Capability]int{}
	for _, g := range Groups() {
		for _, c := range g.Capabilities {
			seen[c]++
		}
	}
	for _, c := range Capabilities() {
		if seen[c] != 1 {
			t.Errorf("%s appears %d times in Groups()", c, seen[c])
		}
	}
}
