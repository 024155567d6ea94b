package enrollment

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/cepalab/signguard/pkg/qrcode"
	"github.com/cepalab/signguard/pkg/secrets"
	"github.com/cepalab/signguard/pkg/totp"
)

// AccountResolver supplies the label shown next to the issuer in
// authenticator apps, usually the user's email.
type AccountResolver interface {
	AccountName(ctx context.Context, userID uuid.UUID) (string, error)
}

// AccountResolverFunc adapts a function to AccountResolver.
type AccountResolverFunc func(ctx context.Context, userID uuid.UUID) (string, error)

func (f AccountResolverFunc) AccountName(ctx context.Context, userID uuid.UUID) (string, error) {
	return f(ctx, userID)
}

// Provisioning is a freshly generated secret in every form the user needs.
// Each public field can be revealed once.
type Provisioning struct {
	SecretDisplay   *secrets.OneTime[string]
	ProvisioningURI *secrets.OneTime[string]
	QRCode          *secrets.OneTime[string] // PNG data URI

	secret string
}

// Provisioner generates TOTP secrets. It persists nothing.
type Provisioner struct {
	issuer   string
	accounts AccountResolver
	qrOpts   []qrcode.Option
}

// NewProvisioner panics when issuer is empty or accounts is nil.
func NewProvisioner(issuer string, accounts AccountResolver, qrOpts ...qrcode.Option) *Provisioner {
	issuer = norm.NFC.String(strings.TrimSpace(issuer))
	if issuer == "" {
		panic("enrollment: issuer is required")
	}
	if accounts == nil {
		panic("enrollment: account resolver is required")
	}
	return &Provisioner{issuer: issuer, accounts: accounts, qrOpts: qrOpts}
}

// Issue generates a new secret for userID.
func (p *Provisioner) Issue(ctx context.Context, userID uuid.UUID) (*Provisioning, error) {
	account, err := p.accounts.AccountName(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrFailedToProvision, err)
	}
	account = norm.NFC.String(strings.TrimSpace(account))
	if account == "" {
		account = userID.String()
	}

	secret, err := totp.GenerateSecret()
	if err != nil {
		return nil, errors.Join(ErrFailedToProvision, err)
	}

	uri, err := totp.ProvisioningURI(totp.Params{
		Secret:      secret,
		AccountName: account,
		Issuer:      p.issuer,
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToProvision, err)
	}

	qr, err := qrcode.DataURI(uri, p.qrOpts...)
	if err != nil {
		return nil, errors.Join(ErrFailedToProvision, err)
	}

	return &Provisioning{
		SecretDisplay:   secrets.NewOneTime(groupSecret(secret)),
		ProvisioningURI: secrets.NewOneTime(uri),
		QRCode:          secrets.NewOneTime(qr),
		secret:          secret,
	}, nil
}

// groupSecret splits the secret into blocks of four for manual entry.
func groupSecret(secret string) string {
	var sb strings.Builder
	for i, r := range secret {
		if i > 0 && i%4 == 0 {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
