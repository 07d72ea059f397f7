package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Params tunes Argon2id hashing of operator passwords.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultArgon2Params: 64MB, one pass, four lanes.
var DefaultArgon2Params = Argon2Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

// Argon2HashService implements ports.HashService using Argon2id.
type Argon2HashService struct {
	params Argon2Params
}

// NewArgon2HashService creates a hash service with DefaultArgon2Params.
func NewArgon2HashService() *Argon2HashService {
	return NewArgon2HashServiceWithParams(DefaultArgon2Params)
}

// NewArgon2HashServiceWithParams creates a hash service with custom cost parameters.
func NewArgon2HashServiceWithParams(p Argon2Params) *Argon2HashService {
	return &Argon2HashService{params: p}
}

// Hash returns the PHC-encoded Argon2id hash of password:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func (s *Argon2HashService) Hash(password string) (string, error) {
	salt := make([]byte, s.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	p := s.params
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks password against an encoded hash. The cost parameters are
// taken from the hash, not from the service.
func (s *Argon2HashService) Verify(password string, encodedHash string) (bool, error) {
	salt, want, p, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

func decodeArgon2Hash(encoded string) (salt, key []byte, p Argon2Params, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, nil, p, fmt.Errorf("invalid hash format: expected 6 parts, got %d", len(parts))
	}
	if parts[1] != "argon2id" {
		return nil, nil, p, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, p, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, p, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return nil, nil, p, fmt.Errorf("parsing params: %w", err)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, p, fmt.Errorf("decoding salt: %w", err)
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, p, fmt.Errorf("decoding hash: %w", err)
	}

	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return salt, key, p, nil
}
