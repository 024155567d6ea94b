// Package jwt verifies HS256 access tokens issued by the auth backend.
//
// It is built on github.com/golang-jwt/jwt/v5. Service.Parse enforces the
// HS256 algorithm, a mandatory exp claim, and (when configured) iss and aud.
// Library errors are mapped onto the package sentinels: ErrExpiredToken,
// ErrInvalidSignature, ErrInvalidToken and ErrInvalidClaims.
//
//	svc, err := jwt.NewFromConfig(cfg)
//	r.Use(jwt.Middleware(svc, jwt.WithErrorHandler(writeUnauthorized)))
//
//	// in a handler
//	userID := jwt.UserIDFromContext(r.Context())
//
// The middleware reads "Authorization: Bearer <token>" by default; cookie
// and custom-header extractors are available through WithExtractor.
package jwt
