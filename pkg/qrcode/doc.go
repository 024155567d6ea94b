// Package qrcode renders QR codes as PNG bytes or data URIs.
//
// It wraps github.com/skip2/go-qrcode with input validation and functional
// options. Enrollment uses it to render otpauth:// provisioning URIs so
// authenticator apps can scan them.
//
//	uri, _ := totp.ProvisioningURI(params)
//	img, err := qrcode.DataURI(uri, qrcode.WithSize(320))
//
// Empty or whitespace content returns ErrEmptyContent; encoder failures are
// wrapped with ErrFailedToGenerate.
package qrcode
