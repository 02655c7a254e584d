// Package keystore resolves the transaction signing key from raw hex or a
// password-encrypted key file (PBKDF2-SHA256 + AES-256-GCM).
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/pbkdf2"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

const (
	DefaultIterations = 480_000
	fileVersion       = 1
	saltLen           = 16
	keyLen            = 32
)

type sealedKey struct {
	Version    int    `json:"version"`
	Iterations int    `json:"iterations"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Source describes where the key comes from. PrivateKey wins over KeyFile.
type Source struct {
	PrivateKey string
	KeyFile    string
	Passphrase string
}

// Key is a loaded signer.
type Key struct {
	Private *ecdsa.PrivateKey
	Address common.Address
}

// Load resolves src into a signing key.
func Load(src Source) (*Key, error) {
	var (
		priv *ecdsa.PrivateKey
		err  error
	)

	switch {
	case src.PrivateKey != "":
		priv, err = crypto.HexToECDSA(strings.TrimPrefix(src.PrivateKey, "0x"))
	case src.KeyFile != "":
		var data []byte
		data, err = os.ReadFile(src.KeyFile)
		if err == nil {
			priv, err = Open(data, src.Passphrase)
		}
	default:
		err = errors.New("no key source configured")
	}
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidKey, apperror.WithCause(err))
	}

	return &Key{Private: priv, Address: crypto.PubkeyToAddress(priv.PublicKey)}, nil
}

// Seal encrypts priv under passphrase.
func Seal(priv *ecdsa.PrivateKey, passphrase string, iterations int) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("keystore: empty passphrase")
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("keystore: salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt, iterations)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("keystore: nonce: %w", err)
	}

	return json.MarshalIndent(sealedKey{
		Version:    fileVersion,
		Iterations: iterations,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, crypto.FromECDSA(priv), nil)),
	}, "", "  ")
}

// Open decrypts a blob produced by Seal.
func Open(data []byte, passphrase string) (*ecdsa.PrivateKey, error) {
	var sk sealedKey
	if err := json.Unmarshal(data, &sk); err != nil {
		return nil, fmt.Errorf("keystore: parse: %w", err)
	}
	if sk.Version != fileVersion {
		return nil, fmt.Errorf("keystore: unsupported version %d", sk.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(sk.Salt)
	if err != nil {
		return nil, fmt.Errorf("keystore: salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(sk.Nonce)
	if err != nil {
		return nil, fmt.Errorf("keystore: nonce: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(sk.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("keystore: ciphertext: %w", err)
	}

	gcm, err := newGCM(passphrase, salt, sk.Iterations)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("keystore: decrypt (wrong passphrase?): %w", err)
	}
	return crypto.ToECDSA(plain)
}

func newGCM(passphrase string, salt []byte, iterations int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(pbkdf2.Key([]byte(passphrase), salt, iterations, keyLen, sha256.New))
	if err != nil {
		return nil, fmt.Errorf("keystore: cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
