package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
)

// FilterAction is what happens to a matched metadata field.
type FilterAction string

const (
	FilterActionRemove FilterAction = "remove"
	FilterActionHash   FilterAction = "hash"
	FilterActionMask   FilterAction = "mask"
)

type filterRule struct {
	pattern string
	action  FilterAction
}

// Verification material never reaches the audit log. Patterns use path.Match
// syntax against the lower-cased key.
var defaultRules = []filterRule{
	{"code", FilterActionRemove},
	{"value", FilterActionRemove},
	{"otp", FilterActionRemove},
	{"backup_code*", FilterActionRemove},
	{"*secret*", FilterActionRemove},
	{"token", FilterActionRemove},
	{"*_token", FilterActionRemove},
	{"provisioning_uri", FilterActionRemove},
	{"password", FilterActionRemove},
	{"api_key", FilterActionRemove},
	{"email", FilterActionHash},
	{"phone", FilterActionMask},
	{"cpf", FilterActionMask},
}

// MetadataFilter scrubs event metadata. Allowed fields win over custom
// rules, which win over the defaults.
type MetadataFilter struct {
	allowed  map[string]struct{}
	custom   []filterRule
	defaults bool
}

// FilterOption configures a MetadataFilter.
type FilterOption func(*MetadataFilter)

func NewMetadataFilter(opts ...FilterOption) *MetadataFilter {
	f := &MetadataFilter{allowed: make(map[string]struct{}), defaults: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithCustomField adds a rule. field may contain path.Match wildcards.
func WithCustomField(field string, action FilterAction) FilterOption {
	return func(f *MetadataFilter) {
		f.custom = append(f.custom, filterRule{pattern: strings.ToLower(field), action: action})
	}
}

// WithAllowedField lets field through untouched.
func WithAllowedField(field string) FilterOption {
	return func(f *MetadataFilter) { f.allowed[strings.ToLower(field)] = struct{}{} }
}

func WithoutPIIDefaults() FilterOption {
	return func(f *MetadataFilter) { f.defaults = false }
}

// Filter returns a scrubbed copy of metadata.
func (f *MetadataFilter) Filter(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}

	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		action, ok := f.actionFor(strings.ToLower(key))
		if !ok {
			out[key] = value
			continue
		}
		switch action {
		case FilterActionRemove:
		case FilterActionHash:
			sum := sha256.Sum256([]byte(fmt.Sprint(value)))
			out[key] = hex.EncodeToString(sum[:])
		case FilterActionMask:
			out[key] = mask(fmt.Sprint(value))
		default:
			out[key] = value
		}
	}
	return out
}

func (f *MetadataFilter) actionFor(key string) (FilterAction, bool) {
	if _, ok := f.allowed[key]; ok {
		return "", false
	}
	if a, ok := match(key, f.custom); ok {
		return a, true
	}
	if f.defaults {
		return match(key, defaultRules)
	}
	return "", false
}

func match(key string, rules []filterRule) (FilterAction, bool) {
	for _, r := range rules {
		if ok, _ := path.Match(r.pattern, key); ok {
			return r.action, true
		}
	}
	return "", false
}

// mask keeps up to two characters at each end.
func mask(s string) string {
	n := len(s)
	keep := 0
	switch {
	case n > 8:
		keep = 2
	case n > 4:
		keep = 1
	}
	return s[:keep] + strings.Repeat("*", n-2*keep) + s[n-keep:]
}
