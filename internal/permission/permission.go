// Package permission defines the capability matrix used to gate group access.
//
// Every place that declares, copies, stores or renders capability flags goes
// through Capability and Set, so the 13 flags have one definition.
package permission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tinoosan/groupledger/internal/errs"
)

// Capability is a single granular permission inside a group.
// The numeric value is the persisted bit position: append new values only.
type Capability uint8

const (
	ViewTransactions Capability = iota
	ManageOwnTransactions
	ManageGroupTransactions
	ViewCategories
	ManageCategories
	ViewSubcategories
	ManageSubcategories
	ViewBudgets
	ManageBudgets
	ViewAccounts
	ManageOwnAccounts
	ManageGroupAccounts
	ManageGroup

	numCapabilities
)

var names = [numCapabilities]string{
	ViewTransactions:        "canViewTransactions",
	ManageOwnTransactions:   "canManageOwnTransactions",
	ManageGroupTransactions: "canManageGroupTransactions",
	ViewCategories:          "canViewCategories",
	ManageCategories:        "canManageCategories",
	ViewSubcategories:       "canViewSubcategories",
	ManageSubcategories:     "canManageSubcategories",
	ViewBudgets:             "canViewBudgets",
	ManageBudgets:           "canManageBudgets",
	ViewAccounts:            "canViewAccounts",
	ManageOwnAccounts:       "canManageOwnAccounts",
	ManageGroupAccounts:     "canManageGroupAccounts",
	ManageGroup:             "canManageGroup",
}

var byName = func() map[string]Capability {
	m := make(map[string]Capability, numCapabilities)
	for i, n := range names {
		m[n] = Capability(i)
	}
	return m
}()

// String returns the wire name of the capability.
func (c Capability) String() string {
	if c >= numCapabilities {
		return fmt.Sprintf("capability(%d)", uint8(c))
	}
	return names[c]
}

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool { return c < numCapabilities }

// Parse maps a wire name such as "canManageGroup" to its capability.
func Parse(name string) (Capability, error) {
	c, ok := byName[name]
	if !ok {
		return 0, fmt.Errorf("unknown capability %q: %w", name, errs.ErrInvalid)
	}
	return c, nil
}

// Capabilities lists every capability in matrix order.
func Capabilities() []Capability {
	out := make([]Capability, 0, numCapabilities)
	for c := Capability(0); c < numCapabilities; c++ {
		out = append(out, c)
	}
	return out
}

// Group is a named row of the permission matrix.
type Group struct {
	Name         string       `json:"name"`
	Capabilities []Capability `json:"capabilities"`
}

// Groups returns the matrix grouping used when rendering role editors.
func Groups() []Group {
	return []Group{
		{Name: "transactions", Capabilities: []Capability{ViewTransactions, ManageOwnTransactions, ManageGroupTransactions}},
		{Name: "categories", Capabilities: []Capability{ViewCategories, ManageCategories}},
		{Name: "subcategories", Capabilities: []Capability{ViewSubcategories, ManageSubcategories}},
		{Name: "budgets", Capabilities: []Capability{ViewBudgets, ManageBudgets}},
		{Name: "accounts", Capabilities: []Capability{ViewAccounts, ManageOwnAccounts, ManageGroupAccounts}},
		{Name: "group", Capabilities: []Capability{ManageGroup}},
	}
}

// MarshalJSON encodes a capability by its wire name.
func (c Capability) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("marshal capability %d: %w", uint8(c), errs.ErrInvalid)
	}
	return json.Marshal(names[c])
}

// Set is an immutable set of capabilities.
type Set uint16

const allBits = Set(1<<numCapabilities - 1)

// None returns the empty set.
func None() Set { return 0 }

// All returns the set holding every capability.
func All() Set { return allBits }

// Of builds a set from the given capabilities.
func Of(caps ...Capability) Set {
	var s Set
	for _, c := range caps {
		s = s.With(c)
	}
	return s
}

// FromBits restores a persisted set. Unknown bits are dropped.
func FromBits(b int64) Set { return Set(b) & allBits }

// Bits returns the persisted representation of s.
func (s Set) Bits() int64 { return int64(s & allBits) }

func (s Set) Has(c Capability) bool { return c.Valid() && s&(1<<c) != 0 }

func (s Set) With(c Capability) Set {
	if !c.Valid() {
		return s
	}
	return s | 1<<c
}

func (s Set) Without(c Capability) Set {
	if !c.Valid() {
		return s
	}
	return s &^ (1 << c)
}

// HasAll reports whether s holds every capability in caps.
func (s Set) HasAll(caps ...Capability) bool {
	for _, c := range caps {
		if !s.Has(c) {
			return false
		}
	}
	return true
}

// HasAny reports whether s holds at least one capability in caps.
func (s Set) HasAny(caps ...Capability) bool {
	for _, c := range caps {
		if s.Has(c) {
			return true
		}
	}
	return false
}

// Capabilities lists the members of s in matrix order.
func (s Set) Capabilities() []Capability {
	out := make([]Capability, 0, numCapabilities)
	for c := Capability(0); c < numCapabilities; c++ {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of capabilities in s.
func (s Set) Len() int { return len(s.Capabilities()) }

// Map returns all 13 flags keyed by wire name.
func (s Set) Map() map[string]bool {
	m := make(map[string]bool, numCapabilities)
	for c := Capability(0); c < numCapabilities; c++ {
		m[names[c]] = s.Has(c)
	}
	return m
}

// FromMap builds a set from wire-named flags. Missing names read as false.
func FromMap(m map[string]bool) (Set, error) {
	var s Set
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c, err := Parse(k)
		if err != nil {
			return 0, err
		}
		if m[k] {
			s = s.With(c)
		}
	}
	return s, nil
}

// MarshalJSON emits every flag in matrix order.
func (s Set) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for c := Capability(0); c < numCapabilities; c++ {
		if c > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(names[c])
		buf.WriteString(`":`)
		if s.Has(c) {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Set) UnmarshalJSON(b []byte) error {
	var m map[string]bool
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("permissions: %w", errs.ErrInvalid)
	}
	out, err := FromMap(m)
	if err != nil {
		return err
	}
	*s = out
	return nil
}

func (s Set) String() string {
	caps := s.Capabilities()
	buf := bytes.NewBufferString("[")
	for i, c := range caps {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(c.String())
	}
	buf.WriteByte(']')
	return buf.String()
}
