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
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/awnumar/memguard"
	"golang.org/x/sys/unix"
)

// MinMlockLimitKB is the minimum RLIMIT_MEMLOCK (in KB) below which
// memguard may fail to lock pages and keys could be swapped to disk.
const MinMlockLimitKB = 64 * 1024

var mlockCheckOnce sync.Once

// SecretKey holds an API key in an encrypted memguard enclave. The key
// only exists in plaintext inside Use, in a locked, wipe-on-destroy
// buffer.
type SecretKey struct {
	enclave *memguard.Enclave
}

// LoadSecretKey reads an API key from the environment variable, falling
// back to the container secret path, and seals it into an enclave.
//
// The env copy cannot be wiped (Go strings are immutable), so the enclave
// protects against later heap dumps, not the initial read.
func LoadSecretKey(envVar, secretPath string) (*SecretKey, error) {
	checkMlockLimit()

	key := os.Getenv(envVar)
	if key == "" && secretPath != "" {
		if content, err := os.ReadFile(secretPath); err == nil {
			key = strings.TrimSpace(string(content))
			slog.Info("Read API key from container secret", "path", secretPath)
		}
	}
	if key == "" {
		return nil, fmt.Errorf("%s is not set and no secret found", envVar)
	}

	return &SecretKey{enclave: memguard.NewEnclave([]byte(key))}, nil
}

// Use opens the enclave, hands the plaintext key to fn, and destroys the
// locked buffer when fn returns.
func (k *SecretKey) Use(fn func(key string) error) error {
	buf, err := k.enclave.Open()
	if err != nil {
		return fmt.Errorf("failed to open key enclave: %w", err)
	}
	defer buf.Destroy()
	return fn(buf.String())
}

// checkMlockLimit warns once when RLIMIT_MEMLOCK is too low for memguard
// to lock its buffers.
func checkMlockLimit() {
	mlockCheckOnce.Do(func() {
		var lim unix.Rlimit
		if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &lim); err != nil {
			slog.Warn("Could not read RLIMIT_MEMLOCK", "error", err)
			return
		}
		limitKB := lim.Cur / 1024
		if lim.Cur != unix.RLIM_INFINITY && limitKB < MinMlockLimitKB {
			slog.Warn("RLIMIT_MEMLOCK is low; API keys may not be locked in memory",
				"limit_kb", limitKB,
				"recommended_kb", MinMlockLimitKB)
		}
	})
}
