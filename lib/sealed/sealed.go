// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// ErrNoIdentity is returned when a secret file is encrypted but no
// identity file was configured.
var ErrNoIdentity = errors.New("secret file is age-encrypted but no identity file is configured")

const binaryHeader = "age-encryption.org/v1\n"

// ReadFile returns the secret stored at path. An age-encrypted file is
// decrypted with the identities in identityPath. Surrounding
// whitespace is trimmed from the result.
func ReadFile(path, identityPath string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading secret file: %w", err)
	}

	var ciphertext io.Reader
	switch {
	case bytes.HasPrefix(data, []byte(armor.Header)):
		ciphertext = armor.NewReader(bytes.NewReader(data))
	case bytes.HasPrefix(data, []byte(binaryHeader)):
		ciphertext = bytes.NewReader(data)
	default:
		return bytes.TrimSpace(data), nil
	}

	if identityPath == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrNoIdentity)
	}
	identities, err := readIdentities(identityPath)
	if err != nil {
		return nil, err
	}

	reader, err := age.Decrypt(ciphertext, identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting %s: %w", path, err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted %s: %w", path, err)
	}
	return bytes.TrimSpace(plaintext), nil
}

// WriteFile stores secret at path with mode 0600. When identityPath is
// set, the file is ASCII-armored age ciphertext encrypted to the
// recipients of the identities in it; otherwise it is plaintext.
func WriteFile(path string, secret []byte, identityPath string) error {
	content := append(bytes.Clone(secret), '\n')
	if identityPath != "" {
		recipients, err := recipientsOf(identityPath)
		if err != nil {
			return err
		}
		content, err = encrypt(content, recipients)
		if err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("writing secret file: %w", err)
	}
	return nil
}

func readIdentities(identityPath string) ([]age.Identity, error) {
	file, err := os.Open(identityPath)
	if err != nil {
		return nil, fmt.Errorf("opening identity file: %w", err)
	}
	defer file.Close()

	identities, err := age.ParseIdentities(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("parsing identity file %s: %w", identityPath, err)
	}
	return identities, nil
}

// recipientsOf derives the public recipients of the X25519 identities
// in identityPath.
func recipientsOf(identityPath string) ([]age.Recipient, error) {
	identities, err := readIdentities(identityPath)
	if err != nil {
		return nil, err
	}
	var recipients []age.Recipient
	for _, identity := range identities {
		if x25519, ok := identity.(*age.X25519Identity); ok {
			recipients = append(recipients, x25519.Recipient())
		}
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("identity file %s holds no X25519 identities", identityPath)
	}
	return recipients, nil
}

func encrypt(plaintext []byte, recipients []age.Recipient) ([]byte, error) {
	var buffer bytes.Buffer
	armorWriter := armor.NewWriter(&buffer)
	writer, err := age.Encrypt(armorWriter, recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	if err := armorWriter.Close(); err != nil {
		return nil, fmt.Errorf("finalizing armor: %w", err)
	}
	return buffer.Bytes(), nil
}
