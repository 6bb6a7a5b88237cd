// Package filecheck decides whether an incoming file is admitted.
//
// Admission is a three step check: the filename extension against a
// per-use-case allow-list, then the declared MIME type, then a
// magic-byte sniff of the first bytes of the content. The sniff is a
// fallback that admits a file even when extension and MIME both fail,
// so a correctly formed image with a misleading name still gets in.
// This is a UX gate, not a security boundary.
package filecheck

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

// SampleSize is how many leading bytes the sniffer looks at.
const SampleSize = 64

// Policy is an immutable allow-list for one upload use case.
type Policy struct {
	Name       string
	Extensions map[string]bool // lowercase, without the dot
	MIMETypes  map[string]bool // lowercase
}

// DocumentPolicy admits the archive/document formats accepted for
// daily uploads.
func DocumentPolicy() Policy {
	return Policy{
		Name: "document",
		Extensions: map[string]bool{
			"pdf": true, "doc": true, "docx": true, "zip": true,
		},
		MIMETypes: map[string]bool{
			"application/pdf":    true,
			"application/msword": true,
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
			"application/zip":              true,
			"application/x-zip-compressed": true,
		},
	}
}

// ImagePolicy admits the image formats accepted for feedback
// attachments and avatars.
func ImagePolicy() Policy {
	return Policy{
		Name: "image",
		Extensions: map[string]bool{
			"png": true, "jpg": true, "jpeg": true, "gif": true,
			"webp": true, "bmp": true, "tif": true, "tiff": true,
			"ico": true, "avif": true, "heic": true, "heif": true,
		},
		MIMETypes: map[string]bool{
			"image/png": true, "image/jpeg": true, "image/gif": true,
			"image/webp": true, "image/bmp": true, "image/tiff": true,
			"image/x-icon": true, "image/vnd.microsoft.icon": true,
			"image/avif": true, "image/heic": true, "image/heif": true,
		},
	}
}

// RejectionError carries a verbose diagnostic payload so the caller can
// see exactly why a file was turned away: the name, the declared MIME
// type, a hex dump of the sampled bytes, and the allow-list in force.
type RejectionError struct {
	FileName     string   `json:"fileName"`
	DeclaredMIME string   `json:"declaredMime"`
	SampleHex    string   `json:"sampleHex"`
	Allowed      []string `json:"allowed"`
	PolicyName   string   `json:"policy"`
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("file type not allowed: %q (declared %q, policy %s)",
		e.FileName, e.DeclaredMIME, e.PolicyName)
}

// Check decides ADMIT (nil) or REJECT (*RejectionError) for a file.
// sample holds up to SampleSize leading bytes of the content and may be
// nil when the caller could not sniff.
func (p Policy) Check(fileName, declaredMIME string, sample []byte) error {
	// Primary: extension allow-list, case-insensitive.
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if ext != "" && p.Extensions[ext] {
		return nil
	}

	// Declared MIME type (content-type parameters stripped).
	mime := strings.ToLower(strings.TrimSpace(declaredMIME))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime != "" && p.MIMETypes[mime] {
		return nil
	}

	// Fallback: magic-byte sniff admits despite extension/MIME mismatch.
	if SniffSignature(sample) != "" {
		return nil
	}

	allowed := make([]string, 0, len(p.Extensions))
	for e := range p.Extensions {
		allowed = append(allowed, e)
	}
	sort.Strings(allowed)

	return &RejectionError{
		FileName:     fileName,
		DeclaredMIME: declaredMIME,
		SampleHex:    hex.EncodeToString(sample),
		Allowed:      allowed,
		PolicyName:   p.Name,
	}
}

// SniffSignature matches the leading bytes against a small table of
// known signatures and returns the detected format name, or "" when
// nothing matched.
func SniffSignature(sample []byte) string {
	if len(sample) < 2 {
		return ""
	}
	switch {
	case bytes.HasPrefix(sample, []byte{0xFF, 0xD8}):
		return "jpeg"
	case bytes.HasPrefix(sample, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return "png"
	case bytes.HasPrefix(sample, []byte("GIF8")):
		return "gif"
	case len(sample) >= 12 && bytes.HasPrefix(sample, []byte("RIFF")) && bytes.Equal(sample[8:12], []byte("WEBP")):
		return "webp"
	case bytes.HasPrefix(sample, []byte{0x49, 0x49, 0x2A, 0x00}),
		bytes.HasPrefix(sample, []byte{0x4D, 0x4D, 0x00, 0x2A}):
		return "tiff"
	case bytes.HasPrefix(sample, []byte("BM")):
		return "bmp"
	case bytes.HasPrefix(sample, []byte{0x00, 0x00, 0x01, 0x00}):
		return "ico"
	}
	// Loose AVIF/HEIC sniff: ISO-BMFF "ftyp" atom at offset 4 with a
	// known image brand.
	if len(sample) >= 12 && bytes.Equal(sample[4:8], []byte("ftyp")) {
		brand := strings.ToLower(string(sample[8:12]))
		switch brand {
		case "avif", "avis", "heic", "heix", "heif", "mif1":
			return brand
		}
	}
	return ""
}

// ReadSample reads up to SampleSize leading bytes from r and restores
// the read position so the full content can still be persisted
// afterwards.
func ReadSample(r io.ReadSeeker) ([]byte, error) {
	buf := make([]byte, SampleSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return buf[:n], nil
}
