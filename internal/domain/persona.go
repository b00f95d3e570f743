package domain

import "strings"

// Persona is the coach voice applied to every generated reply.
type Persona string

const (
	PersonaCold   Persona = "cold"
	PersonaBright Persona = "bright"
	PersonaStrict Persona = "strict"
)

// DefaultPersona is used when a conversation has no stored preference.
const DefaultPersona = PersonaBright

// ParsePersona returns the persona for s and whether it was valid.
func ParsePersona(s string) (Persona, bool) {
	switch Persona(strings.ToLower(strings.TrimSpace(s))) {
	case PersonaCold:
		return PersonaCold, true
	case PersonaBright:
		return PersonaBright, true
	case PersonaStrict:
		return PersonaStrict, true
	default:
		return "", false
	}
}
