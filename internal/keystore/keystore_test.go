package keystore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/keystore"
)

func TestLoad_RawHex(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	key, err := keystore.Load(keystore.Source{PrivateKey: hexutil.Encode(crypto.FromECDSA(priv))})
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(priv.PublicKey), key.Address)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	blob, err := keystore.Seal(priv, "hunter2", 1000)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	key, err := keystore.Load(keystore.Source{KeyFile: path, Passphrase: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(priv.PublicKey), key.Address)

	_, err = keystore.Load(keystore.Source{KeyFile: path, Passphrase: "wrong"})
	assert.Equal(t, apperror.CodeInvalidKey, apperror.GetCode(err))
}

func TestLoad_NoSource(t *testing.T) {
	_, err := keystore.Load(keystore.Source{})
	assert.Equal(t, apperror.CodeInvalidKey, apperror.GetCode(err))
}
