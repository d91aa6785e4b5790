package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrMalformedKey = errors.New("malformed api key")

// APIKey is a merchant credential of the form "<merchantID>.<secret>".
type APIKey struct {
	MerchantID string
	Secret     string
}

func (k APIKey) String() string { return k.MerchantID + "." + k.Secret }

func ParseAPIKey(raw string) (APIKey, error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(raw), ".")
	if !ok || id == "" || secret == "" {
		return APIKey{}, ErrMalformedKey
	}
	return APIKey{MerchantID: id, Secret: secret}, nil
}

// NewAPISecret returns a random secret and its bcrypt hash for storage.
func NewAPISecret() (secret, hash string, err error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	secret = hex.EncodeToString(b)
	hash, err = HashAPISecret(secret)
	return secret, hash, err
}

func HashAPISecret(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(b), err
}

func VerifyAPISecret(secret, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
}
