package integrity

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/frederic-klein/yapm/internal/dist"
)

// FileHashes returns lowercase hex digests of the file at path, keyed by
// algorithm name as used in registry metadata and direct_url records.
func FileHashes(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file for hashing: %w", err)
	}
	defer f.Close()

	sha := sha256.New()
	md := md5.New()
	if _, err := io.Copy(io.MultiWriter(sha, md), f); err != nil {
		return nil, fmt.Errorf("hashing %s: %w", path, err)
	}

	return map[string]string{
		"sha256": hex.EncodeToString(sha.Sum(nil)),
		"md5":    hex.EncodeToString(md.Sum(nil)),
	}, nil
}

// Verify checks a downloaded file against the registry digests. SHA-256 is
// preferred; MD5 is accepted only when the registry published no SHA-256.
// A file without any published digest verifies trivially.
func Verify(path string, file dist.File) error {
	if file.SHA256 == "" && file.MD5 == "" {
		return nil
	}

	hashes, err := FileHashes(path)
	if err != nil {
		return err
	}

	if file.SHA256 != "" {
		if hashes["sha256"] != file.SHA256 {
			return fmt.Errorf("sha256 mismatch for %s: got %s, want %s", file.Filename, hashes["sha256"], file.SHA256)
		}
		return nil
	}
	if hashes["md5"] != file.MD5 {
		return fmt.Errorf("md5 mismatch for %s: got %s, want %s", file.Filename, hashes["md5"], file.MD5)
	}
	return nil
}

// Attach fills in a direct URL archive record with the digests of the
// downloaded artifact. Non-archive records are left untouched.
func Attach(record *dist.DirectURL, path string) error {
	if record.Kind() != dist.DirectURLArchive {
		return nil
	}

	hashes, err := FileHashes(path)
	if err != nil {
		return err
	}
	if record.Archive == nil {
		record.Archive = &dist.ArchiveInfo{}
	}
	record.Archive.Hashes = hashes
	record.Archive.Hash = "sha256=" + hashes["sha256"]
	return nil
}
