package security

import (
	"github.com/pquerna/otp/totp"
)

// totpIssuer appears in authenticator apps next to the account name.
const totpIssuer = "Cartify"

// GenerateTOTPSecret creates a new TOTP key for the given account and
// returns the Base32 secret plus the otpauth:// enrollment URI.
func GenerateTOTPSecret(email string) (secret, uri string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: email,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// VerifyTOTPCode checks a 6-digit authenticator code against the secret.
func VerifyTOTPCode(code, secret string) bool {
	return totp.Validate(code, secret)
}
