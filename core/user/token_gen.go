package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/evalink/core"
)

var (
	tokenSalt  = []byte("evalink.core.user.password-reset")
	tokenEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	NowFunc    = time.Now // mockable

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// EncodeUID makes a user ID safe to embed in a URL.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	id, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(id), nil
}

// MakeToken generates a password reset token of the form "<day in base 36>-<signature>".
// The token stops verifying once the user logs in, changes their password or gets deactivated.
func MakeToken(usr User) (string, error) {
	return signToken(usr, daysSinceEpoch(NowFunc()))
}

func verifyToken(usr User, token string) error {
	dayPart, _, ok := strings.Cut(token, "-")
	if !ok {
		return errInvalidToken
	}
	day, err := strconv.ParseInt(dayPart, 36, 64)
	if err != nil || day < 0 {
		return errInvalidToken
	}

	expected, err := signToken(usr, day)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return errInvalidToken
	}

	maxAge := int64(core.Conf.PasswordResetTimeoutDelta / (24 * time.Hour))
	if daysSinceEpoch(NowFunc())-day > maxAge {
		return errTokenExpired
	}
	return nil
}

func daysSinceEpoch(t time.Time) int64 {
	return int64(t.Sub(tokenEpoch) / (24 * time.Hour))
}

func signToken(usr User, day int64) (string, error) {
	key := sha256.Sum256(append(append([]byte{}, tokenSalt...), core.Conf.SecretKey...))
	mac := hmac.New(sha256.New, key[:])
	if _, err := mac.Write(tokenState(usr, day)); err != nil {
		return "", err
	}
	return strconv.FormatInt(day, 36) + "-" + base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// tokenState is what a token is bound to: any change to it invalidates outstanding tokens.
func tokenState(usr User, day int64) []byte {
	var buf bytes.Buffer
	buf.WriteString(usr.ID)
	buf.WriteByte(0)
	buf.Write(usr.PasswordHash)
	buf.WriteByte(0)
	if usr.LastLogin.Valid {
		buf.WriteString(usr.LastLogin.Time.UTC().Format(time.RFC3339))
	}
	buf.WriteByte(0)
	buf.WriteString(strconv.FormatBool(usr.IsActive))
	buf.WriteByte(0)
	buf.WriteString(strconv.FormatInt(day, 10))
	return buf.Bytes()
}
