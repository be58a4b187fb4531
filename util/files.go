package util

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
)

// FileDigest returns the hex MD5 checksum and the size in bytes of a file
func FileDigest(filename string) (string, int64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()

	hash := md5.New()
	size, err := io.Copy(hash, file)
	if err != nil {
		return "", 0, errors.Wrapf(err, "reading %s", filename)
	}
	return hex.EncodeToString(hash.Sum(nil)), size, nil
}
