package totp

import (
	"fmt"
	"net/url"
	"strconv"
)

// Params describes a provisioning URI for authenticator apps.
type Params struct {
	Secret      string // Base32-encoded secret (required)
	AccountName string // User identifier like email (required)
	Issuer      string // Service name displayed in authenticator apps (required)
	Algorithm   string // Defaults to SHA1
	Digits      int    // Defaults to 6
	Period      int    // Defaults to 30
}

// Validate ensures all required parameters are present and the secret decodes.
func (p Params) Validate() error {
	if p.Secret == "" {
		return ErrMissingSecret
	}
	if _, err := DecodeSecret(p.Secret); err != nil {
		return err
	}
	if p.AccountName == "" {
		return ErrMissingAccountName
	}
	if p.Issuer == "" {
		return ErrMissingIssuer
	}
	return nil
}

// WithDefaults returns a copy with RFC 6238 defaults applied to zero-valued fields.
func (p Params) WithDefaults() Params {
	if p.Algorithm == "" {
		p.Algorithm = DefaultAlgorithm
	}
	if p.Digits == 0 {
		p.Digits = DefaultDigits
	}
	if p.Period == 0 {
		p.Period = DefaultPeriod
	}
	return p
}

// ProvisioningURI builds an otpauth:// URI following the Key Uri Format:
// https://github.com/google/google-authenticator/wiki/Key-Uri-Format
func ProvisioningURI(p Params) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	p = p.WithDefaults()

	label := fmt.Sprintf("%s:%s", url.PathEscape(p.Issuer), url.PathEscape(p.AccountName))

	query := url.Values{}
	query.Set("secret", p.Secret)
	query.Set("issuer", p.Issuer)
	query.Set("algorithm", p.Algorithm)
	query.Set("digits", strconv.Itoa(p.Digits))
	query.Set("period", strconv.Itoa(p.Period))

	return fmt.Sprintf("otpauth://totp/%s?%s", label, query.Encode()), nil
}
