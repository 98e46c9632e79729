package member

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	resetSalt = []byte("inclusiva.core.member.password_reset")

	// errors
	ErrInvalidResetToken = errors.New("invalid token")
	ErrResetTokenExpired = errors.New("token expired")
)

// EncodeUID encodes the workspace and member ids of m for use in a password reset link.
func EncodeUID(m Member) string {
	return base64.RawURLEncoding.EncodeToString([]byte(m.WorkspaceID + ":" + m.ID))
}

func decodeUID(uid string) (workspaceID, id string, err error) {
	data, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", "", err
	}
	parts := strings.SplitN(string(data), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidResetToken
	}
	return parts[0], parts[1], nil
}

type tokenGenerator struct {
	secret  []byte
	timeout time.Duration
}

// MakeToken generates a password reset token for m. The token stops verifying once the
// member's password changes.
func (tg tokenGenerator) MakeToken(m Member) (string, error) {
	return tg.makeTokenWithTimestamp(m, numDaysSince2001(NowFunc()))
}

// verifyToken checks that a password reset token for m is valid.
func (tg tokenGenerator) verifyToken(m Member, token string) error {
	if token == "" {
		return ErrInvalidResetToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return ErrInvalidResetToken
	}

	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(parts[0])
	if err != nil {
		return ErrInvalidResetToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return ErrInvalidResetToken
	}

	// check that token has not been tampered with
	newToken, err := tg.makeTokenWithTimestamp(m, ts)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(newToken), []byte(token)) == 0 {
		return ErrInvalidResetToken
	}

	// check that the timestamp is within limit
	if (numDaysSince2001(NowFunc()) - ts) > int(tg.timeout/(24*time.Hour)) {
		return ErrResetTokenExpired
	}
	return nil
}

func (tg tokenGenerator) makeTokenWithTimestamp(m Member, ts int) (string, error) {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	sig, err := tg.sign(hashValue(m, ts))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", tsB32, sig), nil
}

func (tg tokenGenerator) sign(val []byte) (string, error) {
	key := sha256.Sum256(append(append([]byte(nil), resetSalt...), tg.secret...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(m Member, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(m.WorkspaceID)
	val.WriteString(m.ID)
	val.Write(m.PasswordHash)
	val.WriteString(strconv.FormatBool(m.IsActive))
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
