// Package weapi produces the encrypted request bodies the catalog's weapi endpoints require.
//
// A payload is encrypted twice with AES-128-CBC, first under a fixed nonce and then
// under a fresh 16 character key. The fresh key is sent alongside as encSecKey,
// raised to a fixed public exponent modulo a fixed 1024-bit modulus.
package weapi

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"

	"github.com/desertthunder/ncx/internal/shared"
)

const (
	nonce    = "0CoJUm6Qyw8W8jud"
	iv       = "0102030405060708"
	exponent = "010001"
	modulus  = "00e0b509f6259df8642dbc35662901477df22677ec152b5ff68ace615bb7b725152b3ab17a876aea8a5aa76d2e417629ec4ee341f56135fccf695280104e0312ecbda92557c93870114af6c9d05c4f7f0c3685b7a46bee255932575cce10b424d813cfe4875d3e82047b97ddef52741d546b8e289dc6935b3ece0462db0a22b8e7"

	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	keyLen   = 16

	// SecKeyWidth is the exact hex width of encSecKey.
	SecKeyWidth = 256
)

// Envelope is the encrypted body pair accepted in place of a plaintext payload.
type Envelope struct {
	Params    string
	EncSecKey string
}

// Form returns the envelope as form values.
func (e Envelope) Form() url.Values {
	return url.Values{"params": {e.Params}, "encSecKey": {e.EncSecKey}}
}

// Encode returns the form-encoded request body.
func (e Envelope) Encode() string {
	return e.Form().Encode()
}

// Encrypt wraps plaintext in an [Envelope] under a freshly generated key.
func Encrypt(plaintext string) (Envelope, error) {
	return encrypt(plaintext, newKey())
}

// EncryptJSON marshals v and encrypts the result.
func EncryptJSON(v any) (Envelope, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: marshal payload: %v", shared.ErrCipherDefect, err)
	}
	return Encrypt(string(b))
}

func encrypt(plaintext, key string) (Envelope, error) {
	first, err := aesCBC(plaintext, nonce)
	if err != nil {
		return Envelope{}, err
	}
	params, err := aesCBC(first, key)
	if err != nil {
		return Envelope{}, err
	}
	sec, err := secKey(key)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Params: params, EncSecKey: sec}, nil
}

// newKey draws a key from a non-cryptographic source. Only uniqueness across calls matters.
func newKey() string {
	b := make([]byte, keyLen)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}

// aesCBC encrypts text with PKCS#7 padding and returns standard base64.
func aesCBC(text, key string) (string, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrCipherDefect, err)
	}

	pad := aes.BlockSize - len(text)%aes.BlockSize
	buf := append([]byte(text), bytes.Repeat([]byte{byte(pad)}, pad)...)
	cipher.NewCBCEncrypter(block, []byte(iv)).CryptBlocks(buf, buf)
	return base64.StdEncoding.EncodeToString(buf), nil
}

var publicKey = sync.OnceValues(func() ([2]*big.Int, error) {
	e, ok := new(big.Int).SetString(exponent, 16)
	if !ok {
		return [2]*big.Int{}, fmt.Errorf("%w: bad exponent", shared.ErrCipherDefect)
	}
	n, ok := new(big.Int).SetString(modulus, 16)
	if !ok {
		return [2]*big.Int{}, fmt.Errorf("%w: bad modulus", shared.ErrCipherDefect)
	}
	return [2]*big.Int{e, n}, nil
})

// secKey reverses key, reads its bytes as one hex integer and returns
// m^e mod n as lowercase hex left padded with zeros to [SecKeyWidth].
func secKey(key string) (string, error) {
	pk, err := publicKey()
	if err != nil {
		return "", err
	}

	reversed := []byte(key)
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}

	m := new(big.Int).SetBytes(reversed)
	out := new(big.Int).Exp(m, pk[0], pk[1]).Text(16)
	if len(out) > SecKeyWidth {
		return "", fmt.Errorf("%w: encSecKey is %d hex chars", shared.ErrCipherDefect, len(out))
	}
	return strings.Repeat("0", SecKeyWidth-len(out)) + out, nil
}
