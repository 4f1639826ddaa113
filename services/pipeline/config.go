// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the shared agent configuration and its environment
// bindings.
package pipeline

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/AleutianAI/tere4ai/services/llm"
)

// =============================================================================
// Environment Variables
// =============================================================================

// Environment variables read by AgentConfigFromEnv.
const (
	ModelEnv              = "TERE4AI_MODEL"
	TemperatureEnv        = "TERE4AI_TEMPERATURE"
	MaxTokensEnv          = "TERE4AI_MAX_TOKENS"
	MaxRetriesEnv         = "TERE4AI_MAX_RETRIES"
	ArticleConcurrencyEnv = "TERE4AI_ARTICLE_CONCURRENCY"
	LogLevelEnv           = "TERE4AI_LOG_LEVEL"
	TraceEnabledEnv       = "TERE4AI_TRACE_ENABLED"
)

// =============================================================================
// Constants
// =============================================================================

const (
	defaultModel              = "gpt-4o"
	defaultTemperature        = 0.1
	defaultMaxTokens          = 4096
	defaultMaxRetries         = 3
	defaultRetryDelay         = time.Second
	defaultArticleConcurrency = 4
	defaultLogLevel           = "INFO"
)

// =============================================================================
// AgentConfig
// =============================================================================

// AgentConfig carries the settings shared by all four phase agents.
//
// # Description
//
// Temperature stays low because requirement generation must be as
// deterministic as the backend allows. ArticleConcurrency bounds the
// parallel per-article generation tasks during specification. MaxRetries
// and RetryDelay configure the retry policy applied at the LLM
// collaborator boundary; the phases themselves never retry.
type AgentConfig struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`

	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`

	ArticleConcurrency int `json:"article_concurrency"`

	LogLevel     string `json:"log_level"`
	TraceEnabled bool   `json:"trace_enabled"`
}

// AgentConfigFromEnv builds the configuration from environment
// variables, falling back to the defaults for anything unset.
func AgentConfigFromEnv() AgentConfig {
	return AgentConfig{
		Model:              getEnvString(ModelEnv, defaultModel),
		Temperature:        getEnvFloat32(TemperatureEnv, defaultTemperature),
		MaxTokens:          getEnvInt(MaxTokensEnv, defaultMaxTokens),
		MaxRetries:         getEnvInt(MaxRetriesEnv, defaultMaxRetries),
		RetryDelay:         defaultRetryDelay,
		ArticleConcurrency: getEnvInt(ArticleConcurrencyEnv, defaultArticleConcurrency),
		LogLevel:           getEnvString(LogLevelEnv, defaultLogLevel),
		TraceEnabled:       getEnvBool(TraceEnabledEnv, true),
	}
}

// applyAgentConfigDefaults fills zero values so a struct-literal config
// behaves like one built from the environment. Temperature is left
// alone because 0.0 is a legitimate setting.
func applyAgentConfigDefaults(cfg AgentConfig) AgentConfig {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.ArticleConcurrency < 1 {
		cfg.ArticleConcurrency = defaultArticleConcurrency
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	return cfg
}

// generationParams builds per-call generation settings from the agent
// configuration.
func (c AgentConfig) generationParams(systemPrompt string) llm.GenerationParams {
	params := llm.GenerationParams{SystemPrompt: systemPrompt}
	temperature := c.Temperature
	params.Temperature = &temperature
	if c.MaxTokens > 0 {
		maxTokens := c.MaxTokens
		params.MaxTokens = &maxTokens
	}
	return params
}

// =============================================================================
// Environment Helpers
// =============================================================================

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default",
			slog.String("key", key),
			slog.String("value", v),
			slog.Int("default", fallback))
		return fallback
	}
	return n
}

func getEnvFloat32(key string, fallback float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		slog.Warn("Invalid float in environment, using default",
			slog.String("key", key),
			slog.String("value", v))
		return fallback
	}
	return float32(f)
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("Invalid boolean in environment, using default",
			slog.String("key", key),
			slog.String("value", v))
		return fallback
	}
	return b
}

// clamp01 bounds a score to the [0, 1] range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
