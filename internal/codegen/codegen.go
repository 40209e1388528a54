// Package codegen pre-computes TOTP code sequences on the producer side so
// the secret never leaves the producer.
package codegen

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Options describes the authenticator a sequence is generated for.
type Options struct {
	Secret    string
	Period    uint
	Digits    int
	Algorithm string
}

// Sequence is a run of consecutive codes starting at Start.
type Sequence struct {
	Codes  []string
	Period int64
	// Start is the aligned epoch second of Codes[0]'s window.
	Start int64
}

// ErrSecretRequired is returned for an empty secret.
var ErrSecretRequired = errors.New("secret is required")

// Generate returns enough codes to cover validFor from the period boundary at
// or before from, plus one extra window for the boundary crossing.
func Generate(opts Options, from time.Time, validFor time.Duration) (*Sequence, error) {
	secret := strings.ToUpper(strings.ReplaceAll(opts.Secret, " ", ""))
	if secret == "" {
		return nil, ErrSecretRequired
	}
	period := opts.Period
	if period == 0 {
		period = 30
	}
	digits, err := parseDigits(opts.Digits)
	if err != nil {
		return nil, err
	}
	alg, err := ParseAlgorithm(opts.Algorithm)
	if err != nil {
		return nil, err
	}

	p := int64(period)
	start := from.Unix() / p * p
	secs := int64((validFor + time.Second - 1) / time.Second)
	count := (secs+p-1)/p + 1

	validate := totp.ValidateOpts{Period: period, Digits: digits, Algorithm: alg}
	codes := make([]string, 0, count)
	for i := int64(0); i < count; i++ {
		code, err := totp.GenerateCodeCustom(secret, time.Unix(start+i*p, 0), validate)
		if err != nil {
			return nil, fmt.Errorf("generate code %d: %w", i, err)
		}
		codes = append(codes, code)
	}

	return &Sequence{Codes: codes, Period: p, Start: start}, nil
}

// ParseAlgorithm accepts SHA1, SHA256, SHA512 and MD5 in any case.
func ParseAlgorithm(name string) (otp.Algorithm, error) {
	switch strings.ToUpper(strings.ReplaceAll(name, "-", "")) {
	case "", "SHA1":
		return otp.AlgorithmSHA1, nil
	case "SHA256":
		return otp.AlgorithmSHA256, nil
	case "SHA512":
		return otp.AlgorithmSHA512, nil
	case "MD5":
		return otp.AlgorithmMD5, nil
	default:
		return 0, fmt.Errorf("unsupported algorithm %q", name)
	}
}

func parseDigits(n int) (otp.Digits, error) {
	switch n {
	case 0, 6:
		return otp.DigitsSix, nil
	case 8:
		return otp.DigitsEight, nil
	default:
		return 0, fmt.Errorf("unsupported digits %d (must be 6 or 8)", n)
	}
}
