package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oukeidos/doctran/internal/apperrors"
	"github.com/oukeidos/doctran/internal/auth"
	"github.com/oukeidos/doctran/internal/cachestore"
	"github.com/oukeidos/doctran/internal/gemini"
	"github.com/oukeidos/doctran/internal/history"
	"github.com/oukeidos/doctran/internal/language"
	"github.com/oukeidos/doctran/internal/logger"
	"github.com/oukeidos/doctran/internal/translator"
	"golang.org/x/term"
)

// noRemote backs commands that never translate (undo, history, cache).
type noRemote struct{}

func (noRemote) Translate(_ context.Context, texts []string, _, _ language.Language, _ func(translator.Progress)) translator.Result {
	return translator.Result{
		Texts: append([]string(nil), texts...),
		OK:    make([]bool, len(texts)),
	}
}

var (
	isTerminal   = term.IsTerminal
	getKey       = auth.GetKey
	getEnvKey    = auth.GetEnvKey
	getStatus    = auth.GetStatus
	promptForKey = auth.PromptForAPIKey
)

// resolveAPIKey handles the logic for finding the API key.
func resolveAPIKey(allowEnv, envOnly bool) (string, string, error) {
	if envOnly {
		if key, ok := getEnvKey(); ok {
			return key, "Environment Variable", nil
		}
		return "", "", fmt.Errorf("env-only set but GEMINI_API_KEY is not set")
	}

	if key, source := getKey(false); key != "" {
		return key, source, nil
	}

	if allowEnv {
		if key, ok := getEnvKey(); ok {
			return key, "Environment Variable", nil
		}
	}

	if isTerminal(int(os.Stdin.Fd())) {
		key, err := promptForKey("Gemini API Key (press Enter to skip): ")
		if err != nil {
			return "", "", fmt.Errorf("error reading API key: %w", err)
		}
		if strings.TrimSpace(key) != "" {
			return strings.TrimSpace(key), "Terminal Prompt", nil
		}
	}

	if !isTerminal(int(os.Stdin.Fd())) {
		return "", "", fmt.Errorf("no API key available (non-interactive shell); set keychain or use --allow-env")
	}
	if allowEnv {
		return "", "", fmt.Errorf("API key is required; not found in keychain or environment")
	}
	return "", "", fmt.Errorf("API key is required; not found in keychain (environment disabled by default; use --allow-env)")
}

func resolveLanguage(input string) (language.Language, error) {
	if lang, ok := language.GetLanguage(input); ok {
		return lang, nil
	}
	if strings.TrimSpace(input) == "" {
		return language.Language{}, fmt.Errorf("language is empty")
	}
	return language.Language{}, fmt.Errorf("unsupported language: %s", input)
}

// openCache opens the translation cache. An unavailable cache degrades to
// always-miss rather than failing the run.
func openCache(path string) *cachestore.Store {
	if path == "" {
		path = cachestore.DefaultPath()
	}
	cache, err := cachestore.Open(path)
	if err != nil {
		cerr := apperrors.CacheUnavailable(err)
		logger.Warn("Cache unavailable; continuing without it", "path", path, "error", cerr)
		return nil
	}
	return cache
}

func openHistory(path string) (*history.Store, error) {
	if path == "" {
		path = history.DefaultPath()
	}
	return history.Open(path)
}

// loadGlossary reads a JSON object of source term -> forced translation.
func loadGlossary(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read glossary file %s: %w", path, err)
	}
	var mapping map[string]string
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("failed to parse glossary file %s: %w", path, err)
	}
	return mapping, nil
}

func printUsageStats(usage gemini.UsageMetadata, duration time.Duration, model string) {
	fmt.Println("\n--- Execution Stats ---")
	fmt.Printf("Time: %s\n", duration)
	fmt.Printf("Model: %s\n", model)
	if usage.TotalTokenCount > 0 {
		fmt.Printf("Tokens: In=%d, Out=%d, Total=%d\n",
			usage.PromptTokenCount, usage.CandidatesTokenCount, usage.TotalTokenCount)
	}
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("Cancellation requested")
		cancel()
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
