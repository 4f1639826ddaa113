// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSecretKey_FromEnv(t *testing.T) {
	t.Setenv("TEST_API_KEY", "env-secret")

	key, err := LoadSecretKey("TEST_API_KEY", "/nonexistent/path")
	if err != nil {
		t.Fatalf("LoadSecretKey returned error: %v", err)
	}

	var got string
	err = key.Use(func(k string) error {
		got = k
		return nil
	})
	if err != nil {
		t.Fatalf("Use returned error: %v", err)
	}
	if got != "env-secret" {
		t.Errorf("Expected env-secret, got %q", got)
	}
}

func TestLoadSecretKey_FromSecretFile(t *testing.T) {
	t.Setenv("TEST_API_KEY", "")

	secretPath := filepath.Join(t.TempDir(), "api_key")
	if err := os.WriteFile(secretPath, []byte("file-secret\n"), 0o600); err != nil {
		t.Fatalf("Failed to write secret file: %v", err)
	}

	key, err := LoadSecretKey("TEST_API_KEY", secretPath)
	if err != nil {
		t.Fatalf("LoadSecretKey returned error: %v", err)
	}

	var got string
	if err := key.Use(func(k string) error {
		got = k
		return nil
	}); err != nil {
		t.Fatalf("Use returned error: %v", err)
	}
	if got != "file-secret" {
		t.Errorf("Secret file content should be trimmed, got %q", got)
	}
}

func TestLoadSecretKey_Missing(t *testing.T) {
	t.Setenv("TEST_API_KEY", "")

	_, err := LoadSecretKey("TEST_API_KEY", "/nonexistent/path")
	if err == nil {
		t.Fatal("LoadSecretKey should fail when neither env nor secret file exists")
	}
}

func TestSecretKey_UsePropagatesCallbackError(t *testing.T) {
	t.Setenv("TEST_API_KEY", "secret")

	key, err := LoadSecretKey("TEST_API_KEY", "/nonexistent/path")
	if err != nil {
		t.Fatalf("LoadSecretKey returned error: %v", err)
	}

	wantErr := errors.New("callback failed")
	if err := key.Use(func(string) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Errorf("Expected callback error, got %v", err)
	}
}
