package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// chunkSize bounds the read buffer used when streaming files through the hash.
const chunkSize = 128 * 1024

// DigestFile returns the lowercase hex SHA-1 digest of the file contents.
func DigestFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	digest, err := DigestReader(file)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return digest, nil
}

// DigestReader hashes everything readable from r.
func DigestReader(r io.Reader) (string, error) {
	h := sha1.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestIdentifier returns the hex SHA-1 digest of the UTF-8 bytes of id.
func DigestIdentifier(id string) string {
	sum := sha1.Sum([]byte(id))
	return hex.EncodeToString(sum[:])
}
