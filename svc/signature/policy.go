package signature

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cepalab/signguard/svc/challenge"
)

// DefaultFreshness bounds the age of a challenge answer for fresh levels.
const DefaultFreshness = 5 * time.Minute

// Rule is the verification requirement of one level.
type Rule struct {
	Methods           []challenge.Method `yaml:"methods"`
	RequiresChallenge bool               `yaml:"requires_challenge"`
	Fresh             bool               `yaml:"fresh"`
}

// Allows reports whether m satisfies the rule.
func (r Rule) Allows(m challenge.Method) bool {
	return slices.Contains(r.Methods, m)
}

// Policy maps levels to rules.
type Policy struct {
	Freshness time.Duration  `yaml:"freshness"`
	Levels    map[Level]Rule `yaml:"levels"`
}

// DefaultPolicy returns the built-in policy table.
func DefaultPolicy() Policy {
	return Policy{
		Freshness: DefaultFreshness,
		Levels: map[Level]Rule{
			LevelBasico: {},
			LevelIntermediario: {
				Methods:           []challenge.Method{challenge.MethodTOTP, challenge.MethodBackupCode},
				RequiresChallenge: true,
			},
			LevelAlto: {
				Methods:           []challenge.Method{challenge.MethodTOTP, challenge.MethodBackupCode},
				RequiresChallenge: true,
				Fresh:             true,
			},
			LevelCritico: {
				Methods:           []challenge.Method{challenge.MethodQRScan, challenge.MethodBackupCode},
				RequiresChallenge: true,
				Fresh:             true,
			},
		},
	}
}

// Rule returns the rule for l.
func (p Policy) Rule(l Level) (Rule, bool) {
	r, ok := p.Levels[l]
	return r, ok
}

// Validate checks that every level has a coherent rule.
func (p Policy) Validate() error {
	if p.Freshness <= 0 {
		return fmt.Errorf("%w: freshness must be positive", ErrInvalidPolicy)
	}
	for l := range p.Levels {
		if _, err := ParseLevel(string(l)); err != nil {
			return fmt.Errorf("%w: unknown level %q", ErrInvalidPolicy, l)
		}
	}
	for _, l := range Levels {
		r, ok := p.Levels[l]
		if !ok {
			return fmt.Errorf("%w: level %s has no rule", ErrInvalidPolicy, l)
		}
		if r.RequiresChallenge && len(r.Methods) == 0 {
			return fmt.Errorf("%w: level %s requires a challenge but allows no method", ErrInvalidPolicy, l)
		}
		if !r.RequiresChallenge && len(r.Methods) > 0 {
			return fmt.Errorf("%w: level %s lists methods without requiring a challenge", ErrInvalidPolicy, l)
		}
		for _, m := range r.Methods {
			if _, err := challenge.ParseMethod(string(m)); err != nil {
				return fmt.Errorf("%w: level %s: unknown method %q", ErrInvalidPolicy, l, m)
			}
		}
	}
	return nil
}

// ParsePolicy reads a YAML policy. Levels it omits keep their default rule.
func ParsePolicy(data []byte) (Policy, error) {
	var doc Policy
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Policy{}, errors.Join(ErrInvalidPolicy, err)
	}

	p := DefaultPolicy()
	if doc.Freshness != 0 {
		p.Freshness = doc.Freshness
	}
	for l, r := range doc.Levels {
		p.Levels[l] = r
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// LoadPolicy reads a YAML policy file.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, errors.Join(ErrInvalidPolicy, err)
	}
	return ParsePolicy(data)
}
