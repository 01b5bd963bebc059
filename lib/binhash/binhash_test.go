// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeebo/blake3"
)

func TestHashFile(t *testing.T) {
	content := []byte("patchbay-installer build 7")
	path := filepath.Join(t.TempDir(), "patchbay-installer")
	if err := os.WriteFile(path, content, 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if want := Digest(blake3.Sum256(content)); got != want {
		t.Errorf("HashFile = %x, want %x", got, want)
	}
}

func TestHashFileLargeStreams(t *testing.T) {
	content := make([]byte, 512*1024)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "large")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if want := Digest(blake3.Sum256(content)); got != want {
		t.Errorf("HashFile(large) = %x, want %x", got, want)
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("HashFile should fail for a missing file")
	}
}

func TestFormatParseDigest(t *testing.T) {
	digest := Digest(blake3.Sum256([]byte("x")))
	text := FormatDigest(digest)
	if len(text) != 64 {
		t.Fatalf("FormatDigest length = %d, want 64", len(text))
	}

	parsed, err := ParseDigest(text)
	if err != nil {
		t.Fatalf("ParseDigest: %v", err)
	}
	if parsed != digest {
		t.Errorf("ParseDigest(FormatDigest(d)) = %x, want %x", parsed, digest)
	}
}

func TestParseDigestRejects(t *testing.T) {
	for _, input := range []string{"zz", "abcd", strings.Repeat("a", 66)} {
		if _, err := ParseDigest(input); err == nil {
			t.Errorf("ParseDigest(%q) succeeded, want error", input)
		}
	}
}
