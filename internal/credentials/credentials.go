package credentials

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const digits = "0123456789"

// GenerateOTP returns a random numeric code of the given length. The
// plaintext is handed to the notification dispatcher exactly once;
// only the hash is ever persisted.
func GenerateOTP(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", fmt.Errorf("failed to generate otp: %w", err)
		}
		code[i] = digits[n.Int64()]
	}
	return string(code), nil
}

// GeneratePassCode builds a human-presentable code: prefix + compact
// date + 4 random digits. Uniqueness is enforced by the caller retrying
// on collision, not by the format.
func GeneratePassCode(prefix string, date time.Time) (string, error) {
	suffix, err := GenerateOTP(4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s%s", prefix, date.Format("060102"), suffix), nil
}

// HashOTP produces a salted one-way hash of the plaintext code.
func HashOTP(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash otp: %w", err)
	}
	return string(hash), nil
}

// CompareOTP checks a plaintext code against a stored hash. bcrypt's
// comparison is constant-time over the derived key.
func CompareOTP(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
