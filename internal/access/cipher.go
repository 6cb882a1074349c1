package access

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Tokens use the OpenSSL passphrase envelope:
// base64("Salted__" || salt[8] || AES-256-CBC(PKCS#7(plaintext))),
// with key and IV derived by EVP_BytesToKey over MD5.
const (
	saltMagic = "Salted__"
	saltSize  = 8
	keySize   = 32
)

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrBadPadding     = errors.New("bad padding")
	ErrNotUTF8        = errors.New("plaintext is not valid utf-8")
)

// randReader is swapped in tests to get deterministic salts.
var randReader io.Reader = rand.Reader

// Decrypt opens a passphrase-encrypted token and returns its plaintext.
func Decrypt(token, passphrase string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if len(raw) < len(saltMagic)+saltSize || string(raw[:len(saltMagic)]) != saltMagic {
		return "", fmt.Errorf("%w: missing salt header", ErrMalformedToken)
	}

	salt := raw[len(saltMagic) : len(saltMagic)+saltSize]
	body := raw[len(saltMagic)+saltSize:]
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d", ErrMalformedToken, len(body))
	}

	key, iv := deriveKey([]byte(passphrase), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	plain, err = unpad(plain)
	if err != nil {
		return "", err
	}

	if !utf8.Valid(plain) {
		return "", ErrNotUTF8
	}

	return string(plain), nil
}

// Encrypt seals plaintext into a token that Decrypt (and the browser-side
// crypto library the invitation links were designed for) can open.
func Encrypt(plaintext, passphrase string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(randReader, salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key, iv := deriveKey([]byte(passphrase), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	padded := pad([]byte(plaintext))
	sealed := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(sealed, padded)

	var out bytes.Buffer
	out.WriteString(saltMagic)
	out.Write(salt)
	out.Write(sealed)

	return base64.StdEncoding.EncodeToString(out.Bytes()), nil
}

// deriveKey is EVP_BytesToKey with MD5 and a single iteration.
func deriveKey(passphrase, salt []byte) (key, iv []byte) {
	var derived, prev []byte
	for len(derived) < keySize+aes.BlockSize {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}

	return derived[:keySize], derived[keySize : keySize+aes.BlockSize]
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrBadPadding
	}

	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, ErrBadPadding
	}

	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrBadPadding
		}
	}

	return b[:len(b)-n], nil
}
