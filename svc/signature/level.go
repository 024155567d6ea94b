package signature

import "strings"

// Level is the security level of a document.
type Level string

const (
	LevelBasico        Level = "basico"
	LevelIntermediario Level = "intermediario"
	LevelAlto          Level = "alto"
	LevelCritico       Level = "critico"
)

// Levels lists every level from least to most protected.
var Levels = []Level{LevelBasico, LevelIntermediario, LevelAlto, LevelCritico}

// ParseLevel accepts a level name in any case.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelBasico, LevelIntermediario, LevelAlto, LevelCritico:
		return l, nil
	}
	return "", ErrUnknownLevel
}
