package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"dsync/internal/model"
)

// RefreshFromDisk reconciles a data file record against the file at the same
// relative path under root. If the content hash is unchanged the record is
// left untouched and false is returned. Otherwise the record's last_updated,
// size, hash, and data are replaced from disk and true is returned. A record
// with no stored hash (a new file) is always treated as modified.
//
// If the file no longer exists on disk, the error satisfies
// errors.Is(err, fs.ErrNotExist); callers catch that specifically to
// distinguish a deletion from other I/O failures.
func RefreshFromDisk(df *model.DataFile, root string, now time.Time) (bool, error) {
	filePath := filepath.Join(root, filepath.FromSlash(df.Path))

	hash, err := sha256Hex(filePath)
	if err != nil {
		return false, err
	}
	if hash == df.Hash {
		return false, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return false, err
	}

	// Hash the bytes actually being stored; the file may have changed again
	// between the streaming pass and the read, and the stored hash must
	// always be the digest of the stored data.
	sum := sha256.Sum256(data)

	df.LastUpdated = now
	df.Size = int64(len(data))
	df.Hash = hex.EncodeToString(sum[:])
	df.Data = data
	return true, nil
}

// sha256Hex streams the file at path through SHA-256 and returns the digest
// as lowercase hex. Unchanged files are never read into memory.
func sha256Hex(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
