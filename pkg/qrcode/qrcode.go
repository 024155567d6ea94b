package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	dataURIPNG  = "data:image/png;base64,"
)

// RecoveryLevel is the error correction level of the rendered code.
type RecoveryLevel = skipqrcode.RecoveryLevel

const (
	Low     RecoveryLevel = skipqrcode.Low
	Medium  RecoveryLevel = skipqrcode.Medium
	High    RecoveryLevel = skipqrcode.High
	Highest RecoveryLevel = skipqrcode.Highest
)

type options struct {
	size    int
	level   RecoveryLevel
	noFrame bool
}

// Option configures rendering.
type Option func(*options)

// WithSize sets the image width and height in pixels. Non-positive values keep the default.
func WithSize(px int) Option {
	return func(o *options) {
		if px > 0 {
			o.size = px
		}
	}
}

// WithRecoveryLevel sets the error correction level.
func WithRecoveryLevel(l RecoveryLevel) Option {
	return func(o *options) { o.level = l }
}

// WithoutBorder drops the quiet zone around the code.
func WithoutBorder() Option {
	return func(o *options) { o.noFrame = true }
}

// PNG renders content as a square PNG image.
func PNG(content string, opts ...Option) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	o := options{size: DefaultSize, level: Medium}
	for _, opt := range opts {
		opt(&o)
	}

	q, err := skipqrcode.New(content, o.level)
	if err != nil {
		return nil, errors.Join(ErrFailedToGenerate, err)
	}
	q.DisableBorder = o.noFrame

	img, err := q.PNG(o.size)
	if err != nil {
		return nil, errors.Join(ErrFailedToGenerate, err)
	}
	return img, nil
}

// DataURI renders content as a base64 PNG data URI suitable for an <img> src.
func DataURI(content string, opts ...Option) (string, error) {
	img, err := PNG(content, opts...)
	if err != nil {
		return "", err
	}
	return dataURIPNG + base64.StdEncoding.EncodeToString(img), nil
}
