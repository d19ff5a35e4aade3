package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"

	"github.com/dagym/contract-backend/pkg/config"
)

const (
	phcPrefix         = "$argon2id$v=19$"
	minPasswordLength = 8
	maxPasswordLength = 72
	tempAlphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"
)

var (
	// ErrInvalidHash is returned for stored hashes that are not argon2id PHC strings.
	ErrInvalidHash = errors.New("security: invalid argon2id hash")
	// ErrWeakPassword is returned by CheckStrength; the message says what is missing.
	ErrWeakPassword = errors.New("security: weak password")
)

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	saltLen uint32
	keyLen  uint32
}

// Hasher hashes operator passwords with argon2id. The cost parameters travel inside each hash,
// so changing PasswordConfig never invalidates existing operators.
type Hasher struct {
	params argonParams
}

func NewHasher(cfg config.PasswordConfig) *Hasher {
	return &Hasher{params: argonParams{
		memory:  uint32(clamp(cfg.ArgonMemoryKB, 8*1024, 512*1024)),
		time:    uint32(clamp(cfg.ArgonTime, 1, 10)),
		threads: uint8(clamp(cfg.ArgonParallelism, 1, 16)),
		saltLen: uint32(clamp(cfg.ArgonSaltLen, 16, 64)),
		keyLen:  uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}}
}

// Hash returns the PHC-formatted hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: empty", ErrWeakPassword)
	}
	salt := make([]byte, h.params.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.params.time, h.params.memory, h.params.threads, h.params.keyLen)
	return fmt.Sprintf("%sm=%d,t=%d,p=%d$%s$%s",
		phcPrefix,
		h.params.memory, h.params.time, h.params.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. Only a malformed hash is an error.
func Verify(password, encoded string) (bool, error) {
	params, salt, key, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	candidate := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, params.keyLen)
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func parseHash(encoded string) (argonParams, []byte, []byte, error) {
	rest, ok := strings.CutPrefix(encoded, phcPrefix)
	if !ok {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	segments := strings.Split(rest, "$")
	if len(segments) != 3 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	var (
		params  argonParams
		threads uint32
	)
	if _, err := fmt.Sscanf(segments[0], "m=%d,t=%d,p=%d", &params.memory, &params.time, &threads); err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	if params.memory == 0 || params.time == 0 || threads == 0 || threads > 255 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	params.threads = uint8(threads)

	salt, err := base64.RawStdEncoding.DecodeString(segments[1])
	if err != nil || len(salt) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(segments[2])
	if err != nil || len(key) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	params.saltLen = uint32(len(salt))
	params.keyLen = uint32(len(key))
	return params, salt, key, nil
}

// CheckStrength applies the console password policy: 8 to 72 characters with at least one letter
// and one digit.
func CheckStrength(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, minPasswordLength)
	}
	if n > maxPasswordLength {
		return fmt.Errorf("%w: must be at most %d characters", ErrWeakPassword, maxPasswordLength)
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return fmt.Errorf("%w: must mix letters and digits", ErrWeakPassword)
	}
	return nil
}

// TempPassword returns a random password that satisfies CheckStrength. Look-alike characters are
// left out because the value is read aloud or copied by hand.
func TempPassword(length int) (string, error) {
	if length < minPasswordLength {
		length = minPasswordLength
	}
	for {
		var b strings.Builder
		for i := 0; i < length; i++ {
			idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(tempAlphabet))))
			if err != nil {
				return "", err
			}
			b.WriteByte(tempAlphabet[idx.Int64()])
		}
		if candidate := b.String(); CheckStrength(candidate) == nil {
			return candidate, nil
		}
	}
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
