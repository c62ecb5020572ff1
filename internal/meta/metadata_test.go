package meta

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/tinoosan/groupledger/internal/errs"
)

func TestWithLeavesOriginalUntouched(t *testing.T) {
	base := New(map[string]string{"role": "Membro"})
	next := base.With("userId", "u-1")
	if _, ok := base.Get("userId"); ok {
		t.Fatal("With mutated the receiver")
	}
	if v, ok := next.Get("role"); !ok || v != "Membro" {
		t.Fatalf("With dropped existing keys: %+v", next)
	}
	var nilMeta Metadata
	if got := nilMeta.With("a", "1"); got["a"] != "1" {
		t.Fatalf("With on nil metadata: %+v", got)
	}
}

func TestStableJSON(t *testing.T) {
	m := New(map[string]string{"b": "2", "a": "1", "c": "ç"})
	b, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":"1","b":"2","c":"ç"}` {
		t.Fatalf("unexpected encoding %s", b)
	}
	var back Metadata
	if err := back.UnmarshalJSON(b); err != nil || len(back) != 3 {
		t.Fatalf("unmarshal: %v %+v", err, back)
	}
	if err := back.UnmarshalJSON([]byte("null")); err != nil || back == nil || len(back) != 0 {
		t.Fatalf("null should decode to empty metadata, got %+v (%v)", back, err)
	}
}

func TestValidationLimits(t *testing.T) {
	many := Metadata{}
	for i := 0; i <= MaxPairs; i++ {
		many["k"+strconv.Itoa(i)] = "v"
	}
	cases := map[string]Metadata{
		"too many pairs": many,
		"empty key":      {"": "v"},
		"long key":       {strings.Repeat("k", MaxKeyLen+1): "v"},
		"long value":     {"k": strings.Repeat("v", MaxValLen+1)},
	}
	for name, m := range cases {
		if err := m.Validate(); !errors.Is(err, errs.ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
	if err := New(map[string]string{"movedTransactions": "3"}).Validate(); err != nil {
		t.Fatalf("valid metadata rejected: %v", err)
	}
}
