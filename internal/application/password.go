package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrInvalidPasswordHash is returned when a stored hash is not in the argon2id PHC format.
	ErrInvalidPasswordHash         = errors.New("invalid password hash format")
	ErrIncompatiblePasswordVersion = errors.New("incompatible password hash version")
)

// Argon2idParams tunes the argon2id key derivation.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2idParams is used for every stored account password.
var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// encodedPassword is the decoded form of $argon2id$v=19$m=..,t=..,p=..$salt$key.
type encodedPassword struct {
	params Argon2idParams
	salt   []byte
	key    []byte
}

func (p encodedPassword) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.params.Memory, p.params.Iterations, p.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(p.salt),
		base64.RawStdEncoding.EncodeToString(p.key),
	)
}

func decodePassword(encoded string) (encodedPassword, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return encodedPassword{}, ErrInvalidPasswordHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return encodedPassword{}, fmt.Errorf("%w: %v", ErrInvalidPasswordHash, err)
	}
	if version != argon2.Version {
		return encodedPassword{}, ErrIncompatiblePasswordVersion
	}

	var out encodedPassword
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &out.params.Memory, &out.params.Iterations, &out.params.Parallelism); err != nil {
		return encodedPassword{}, fmt.Errorf("%w: %v", ErrInvalidPasswordHash, err)
	}

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return encodedPassword{}, fmt.Errorf("%w: salt: %v", ErrInvalidPasswordHash, err)
	}
	if out.key, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil {
		return encodedPassword{}, fmt.Errorf("%w: key: %v", ErrInvalidPasswordHash, err)
	}
	out.params.SaltLength = uint32(len(out.salt))
	out.params.KeyLength = uint32(len(out.key))
	return out, nil
}

func deriveKey(password string, salt []byte, params Argon2idParams) []byte {
	return argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)
}

// NewPasswordHasher returns a PasswordHasher using params. Lower costs keep
// tests fast; stored hashes carry their own parameters so VerifyPassword
// accepts either.
func NewPasswordHasher(params Argon2idParams) PasswordHasher {
	return func(password string) (string, error) {
		return CreatePasswordHash(password, params)
	}
}

// HashPassword hashes password with DefaultArgon2idParams.
func HashPassword(password string) (string, error) {
	return CreatePasswordHash(password, DefaultArgon2idParams)
}

// CreatePasswordHash derives an encoded argon2id hash with a random salt.
func CreatePasswordHash(password string, params Argon2idParams) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	return encodedPassword{params: params, salt: salt, key: deriveKey(password, salt, params)}.String(), nil
}

// VerifyPassword returns ErrInvalidCredentials when password does not match the hash.
func VerifyPassword(hashedPassword, password string) error {
	stored, err := decodePassword(hashedPassword)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(stored.key, deriveKey(password, stored.salt, stored.params)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}
