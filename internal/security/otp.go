package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

const (
	otpMin = 100000
	otpMax = 999999
)

var otpSpan = big.NewInt(otpMax - otpMin + 1)

// GenerateOTP returns a uniformly random code in [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}

func HashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func OTPMatches(storedHash, code string) bool {
	if storedHash == "" || code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(HashOTP(code))) == 1
}

// OTPExpiry returns the absolute expiry in unix milliseconds for a code issued at now.
func OTPExpiry(now time.Time, ttl time.Duration) int64 {
	return now.Add(ttl).UnixMilli()
}

// OTPStillValid treats the expiry instant itself as valid.
func OTPStillValid(expireAtMs int64, now time.Time) bool {
	return expireAtMs > 0 && now.UnixMilli() <= expireAtMs
}

func IsSixDigitCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
