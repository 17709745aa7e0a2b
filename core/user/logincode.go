package user

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"time"
)

var (
	salt    = []byte("ratiba.core.user.logincode")
	NowFunc = time.Now // mockable

	// errors
	ErrInvalidLoginCode = errors.New("invalid login code")
	ErrLoginCodeExpired = errors.New("login code expired")
)

const loginCodeDigits = 6

// generateLoginCode returns a random fixed-length numeric code.
func generateLoginCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < loginCodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", loginCodeDigits, n), nil
}

// hashLoginCode signs the code bound to the user's email so a code issued for
// one account cannot be replayed against another.
func hashLoginCode(secretKey, email, code string) string {
	key := sha256.Sum256(append(salt, secretKey...))
	h := hmac.New(sha256.New, key[:])
	h.Write([]byte(email))
	h.Write([]byte(code))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// verifyLoginCode checks a submitted code against the stored hash and expiry.
func verifyLoginCode(usr User, secretKey, code string) error {
	if usr.LoginCodeHash == "" || code == "" {
		return ErrInvalidLoginCode
	}
	if NowFunc().After(usr.LoginCodeExpiresAt) {
		return ErrLoginCodeExpired
	}
	expected := hashLoginCode(secretKey, usr.Email, code)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(usr.LoginCodeHash)) == 0 {
		return ErrInvalidLoginCode
	}
	return nil
}
