package dictionary

import (
	"testing"

	"github.com/tinoosan/groupledger/internal/ledger"
)

func TestAccountTypesOrderAndFilter(t *testing.T) {
	all := AccountTypes(nil)
	if len(all) != 3 || all[0].Code != ledger.AccountTypeCash || all[1].Code != ledger.AccountTypeCredit {
		t.Fatalf("unexpected catalogue: %+v", all)
	}
	defaults := 0
	for _, def := range all {
		if def.Default {
			defaults++
		}
		if def.NeedsCreditDays != (def.Code == ledger.AccountTypeCredit) {
			t.Fatalf("%s: NeedsCreditDays = %v", def.Code, def.NeedsCreditDays)
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default type, got %d", defaults)
	}

	credit := ledger.AccountTypeCredit
	if got := AccountTypes(&credit); len(got) != 1 || got[0].Label != "Crédito" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
	bogus := ledger.AccountType("SAVINGS")
	if got := AccountTypes(&bogus); len(got) != 0 {
		t.Fatalf("expected nothing for unknown type, got %+v", got)
	}
}

func TestLabel(t *testing.T) {
	if Label(ledger.AccountTypePrepaid) != "Pré-pago" {
		t.Fatalf("unexpected label %q", Label(ledger.AccountTypePrepaid))
	}
	if Label("OTHER") != "OTHER" {
		t.Fatal("unknown types fall back to their code")
	}
}
