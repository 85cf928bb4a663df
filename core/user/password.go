package user

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"

	"github.com/trezcool/lectern/core"
)

const pbkdf2Prefix = "$pbkdf2-sha256$"

var (
	errMismatchedPassword = errors.New("hashed password is not the hash of the given password")
	errPasswordTooLong    = errors.New("password too long")
)

// hashPassword refuses passwords bcrypt would reject, as a field error.
func hashPassword(pwd string) ([]byte, error) {
	if len(pwd) > pwdMaxBytes {
		return nil, core.NewValidationError(errPasswordTooLong, core.FieldError{Field: "password", Error: pwdMaxBytesText})
	}
	return bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
}

// checkPassword compares pwd against a bcrypt hash or a passlib pbkdf2_sha256 hash
// ("$pbkdf2-sha256$<rounds>$<salt>$<checksum>") imported from the previous portal.
func checkPassword(hash []byte, pwd string) error {
	if strings.HasPrefix(string(hash), pbkdf2Prefix) {
		return checkPBKDF2(string(hash), pwd)
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(pwd))
}

func checkPBKDF2(hash, pwd string) error {
	parts := strings.Split(strings.TrimPrefix(hash, pbkdf2Prefix), "$")
	if len(parts) != 3 {
		return errors.New("malformed pbkdf2-sha256 hash")
	}
	rounds, err := strconv.Atoi(parts[0])
	if err != nil || rounds <= 0 {
		return errors.New("malformed pbkdf2-sha256 rounds")
	}
	salt, err := ab64Decode(parts[1])
	if err != nil {
		return errors.Wrap(err, "decoding pbkdf2-sha256 salt")
	}
	want, err := ab64Decode(parts[2])
	if err != nil {
		return errors.Wrap(err, "decoding pbkdf2-sha256 checksum")
	}

	got := pbkdf2.Key([]byte(pwd), salt, rounds, len(want), sha256.New)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return errMismatchedPassword
	}
	return nil
}

// ab64Decode decodes passlib's "adapted base64": "." instead of "+" and no padding.
func ab64Decode(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.ReplaceAll(s, ".", "+"))
}
