package otp

import (
	"errors"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrSecretRequired is returned when a TOTP source has no secret.
var ErrSecretRequired = errors.New("otp: secret is required")

// Source mints and checks codes for one shared secret.
type Source interface {
	Code(at time.Time) (string, error)
	Verify(code string, at time.Time) bool
}

// TOTP implements Source with SHA1 TOTP.
type TOTP struct {
	secret string
	opts   totp.ValidateOpts
}

// NewTOTP returns a TOTP source for secret. An empty secret is replaced by a
// freshly generated one. Digits other than 6 or 8 fall back to 6 and a zero
// period to 30 seconds.
func NewTOTP(issuer, secret string, period uint, digits int) (*TOTP, error) {
	d := otp.Digits(digits)
	if d != otp.DigitsSix && d != otp.DigitsEight {
		d = otp.DigitsSix
	}
	if period == 0 {
		period = 30
	}

	if secret == "" {
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      issuer,
			AccountName: "simulator",
			Period:      period,
			SecretSize:  20,
			Digits:      d,
			Algorithm:   otp.AlgorithmSHA1,
		})
		if err != nil {
			return nil, err
		}
		secret = key.Secret()
	}

	return &TOTP{
		secret: secret,
		opts: totp.ValidateOpts{
			Period:    period,
			Skew:      1,
			Digits:    d,
			Algorithm: otp.AlgorithmSHA1,
		},
	}, nil
}

// Code returns the code valid at at.
func (o *TOTP) Code(at time.Time) (string, error) {
	if o.secret == "" {
		return "", ErrSecretRequired
	}
	return totp.GenerateCodeCustom(o.secret, at, o.opts)
}

// Verify reports whether code is valid at at, allowing one period of skew.
func (o *TOTP) Verify(code string, at time.Time) bool {
	ok, err := totp.ValidateCustom(code, o.secret, at, o.opts)
	return ok && err == nil
}
