package types

import "strings"

// Modifiers is a bit set of declaration modifiers.
type Modifiers uint16

const (
	Public Modifiers = 1 << iota
	Protected
	Private
	Static
	Final
	Abstract
	Interface
	Synthetic
)

var modifierNames = []struct {
	m    Modifiers
	name string
}{
	{Public, "public"},
	{Protected, "protected"},
	{Private, "private"},
	{Static, "static"},
	{Final, "final"},
	{Abstract, "abstract"},
	{Interface, "interface"},
	{Synthetic, "synthetic"},
}

// Has reports whether every modifier in m2 is set in m.
func (m Modifiers) Has(m2 Modifiers) bool { return m&m2 == m2 }

func (m Modifiers) String() string {
	var parts []string
	for _, mn := range modifierNames {
		if m.Has(mn.m) {
			parts = append(parts, mn.name)
		}
	}
	return strings.Join(parts, " ")
}

// ParseModifier maps a keyword to its modifier bit.
func ParseModifier(word string) (Modifiers, bool) {
	for _, mn := range modifierNames {
		if mn.name == word && mn.m != Interface && mn.m != Synthetic {
			return mn.m, true
		}
	}
	return 0, false
}
