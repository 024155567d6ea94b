package twofactor

import (
	"context"

	"github.com/google/uuid"

	"github.com/cepalab/signguard/pkg/jwt"
	"github.com/cepalab/signguard/svc/enrollment"
)

// ClaimsAccounts resolves the authenticator label from the email claim of
// the caller's access token. It returns an empty name for other users or
// when the claim is missing.
var ClaimsAccounts = enrollment.AccountResolverFunc(func(ctx context.Context, userID uuid.UUID) (string, error) {
	claims, ok := jwt.GetClaims(ctx)
	if !ok {
		return "", nil
	}
	if id, err := claims.UserID(); err != nil || id != userID {
		return "", nil
	}
	return claims.Email, nil
})
