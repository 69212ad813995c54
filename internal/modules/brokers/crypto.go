package brokers

import (
	"encoding/json"
	"fmt"

	"github.com/fernet/fernet-go"

	"github.com/niveshio/panorama/internal/apperrors"
	"github.com/niveshio/panorama/internal/domain"
)

// Crypto seals and opens broker credentials with a fernet key. Tokens are
// opened without a TTL: credentials stay valid until rotated, not for a
// fixed window.
type Crypto struct {
	key *fernet.Key
}

// NewCrypto creates a Crypto from a base64-encoded fernet key.
func NewCrypto(encodedKey string) (*Crypto, error) {
	key, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("invalid fernet key: %w", err)
	}
	return &Crypto{key: key}, nil
}

// Seal encrypts credentials into a fernet token for storage. A nil Crypto
// (no key configured) rejects the operation instead of storing plaintext.
func (c *Crypto) Seal(creds domain.Credentials) (string, error) {
	if c == nil {
		return "", apperrors.ErrEncryptionUnavailable
	}

	payload, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("failed to marshal credentials: %w", err)
	}

	token, err := fernet.EncryptAndSign(payload, c.key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	return string(token), nil
}

// Open decrypts a stored fernet token back into credentials. A token that
// fails verification (wrong key, tampered ciphertext) is an invalid-
// credentials error, not a panic.
func (c *Crypto) Open(token string) (domain.Credentials, error) {
	if c == nil {
		return domain.Credentials{}, apperrors.ErrEncryptionUnavailable
	}

	payload := fernet.VerifyAndDecrypt([]byte(token), 0, []*fernet.Key{c.key})
	if payload == nil {
		return domain.Credentials{}, fmt.Errorf("credential token verification failed: %w", apperrors.ErrInvalidCredentials)
	}

	var creds domain.Credentials
	if err := json.Unmarshal(payload, &creds); err != nil {
		return domain.Credentials{}, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}

	return creds, nil
}
