package mail

import (
	"fmt"
	"html"
)

// verificationBody renders the registration verification email. The link
// expires with the pending registration entry.
func verificationBody(name, link string) string {
	return fmt.Sprintf(`
    <h2>Email Verification</h2>
    <p>Hello %s,</p>
    <p>Click the link below to verify your account:</p>
    <a href="%s" style="padding:10px 15px;background:#4f46e5;color:#fff;border-radius:4px;text-decoration:none;">
      Verify Email
    </a>
    <p>This link will expire in 5 minutes.</p>
  `, html.EscapeString(name), link)
}

// otpBody renders the second-factor login code email.
func otpBody(code string) string {
	return fmt.Sprintf(`
          <p>Your OTP for login is: <strong>%s</strong></p>
          <p>This OTP will expire in 5 minutes.</p>
        `, code)
}

// resetBody renders the password reset email.
func resetBody(link string) string {
	return fmt.Sprintf(`
    <h2>Password Reset</h2>
    <p>Click the link below to choose a new password:</p>
    <a href="%s" style="padding:10px 15px;background:#4f46e5;color:#fff;border-radius:4px;text-decoration:none;">
      Reset Password
    </a>
    <p>This link will expire in 5 minutes. If you did not request a reset, you can ignore this email.</p>
  `, link)
}
