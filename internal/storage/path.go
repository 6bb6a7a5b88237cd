package storage

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnsafePath is returned when a relative path would escape the
// storage root.
var ErrUnsafePath = errors.New("unsafe storage path")

// AllocateObjectKey computes a storage key for a client-supplied
// filename, namespaced under the owning account id and prefixed with a
// Unix-second timestamp so repeated uploads of the same name in
// different seconds do not overwrite each other. Two uploads of the
// same name within the same second still collide; accepted behavior.
//
// The returned key always uses forward slashes because it doubles as a
// URL path component under /uploads/.
func AllocateObjectKey(accountID, fileName string) string {
	return fmt.Sprintf("%s/%d_%s", accountID, time.Now().Unix(), SanitizeFileName(fileName))
}

// SanitizeFileName strips anything from a client-supplied filename that
// could influence path resolution: directory components, separators,
// NUL bytes, and leading dots. A name that sanitizes to nothing gets a
// generated fallback so the key is never empty.
func SanitizeFileName(name string) string {
	// Drop any directory components the client sent, both styles.
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ReplaceAll(name, "\x00", "")
	name = strings.TrimLeft(name, ".")
	name = strings.TrimSpace(name)
	if name == "" {
		return "file-" + uuid.NewString()
	}
	return name
}

// ValidateObjectKey rejects absolute keys, keys with ".." segments,
// and keys with NUL bytes. Both storage drivers run keys through this
// before touching the backend.
func ValidateObjectKey(objectKey string) error {
	if objectKey == "" || strings.HasPrefix(objectKey, "/") || strings.Contains(objectKey, "\x00") {
		return ErrUnsafePath
	}
	for _, seg := range strings.Split(objectKey, "/") {
		if seg == ".." {
			return ErrUnsafePath
		}
	}
	if cleaned := path.Clean(objectKey); cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return ErrUnsafePath
	}
	return nil
}

// ResolveWithin maps a forward-slash relative key onto the local
// filesystem under root. It rejects anything ValidateObjectKey rejects
// plus any path that would resolve outside root.
func ResolveWithin(root, objectKey string) (string, error) {
	if err := ValidateObjectKey(objectKey); err != nil {
		return "", err
	}
	cleaned := path.Clean(objectKey)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	full := filepath.Join(absRoot, filepath.FromSlash(cleaned))
	// Belt and braces: the joined path must still sit under the root.
	if full != absRoot && !strings.HasPrefix(full, absRoot+string(filepath.Separator)) {
		return "", ErrUnsafePath
	}
	return full, nil
}
