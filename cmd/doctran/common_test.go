package main

import (
	"os"
	"path/filepath"
	"testing"
)

type keyStubs struct {
	promptCalls int
	keyCalls    int
	envCalls    int
}

func withKeyStubs(t *testing.T, terminal bool, promptVal string, keychainVal string, envVal string) (*keyStubs, func()) {
	t.Helper()
	stubs := &keyStubs{}

	prevIsTerminal := isTerminal
	prevPrompt := promptForKey
	prevGetKey := getKey
	prevGetEnv := getEnvKey

	isTerminal = func(_ int) bool { return terminal }
	promptForKey = func(_ string) (string, error) {
		stubs.promptCalls++
		return promptVal, nil
	}
	getKey = func(_ bool) (string, string) {
		stubs.keyCalls++
		if keychainVal == "" {
			return "", ""
		}
		return keychainVal, "Keychain"
	}
	getEnvKey = func() (string, bool) {
		stubs.envCalls++
		if envVal == "" {
			return "", false
		}
		return envVal, true
	}

	restore := func() {
		isTerminal = prevIsTerminal
		promptForKey = prevPrompt
		getKey = prevGetKey
		getEnvKey = prevGetEnv
	}

	return stubs, restore
}

func TestResolveAPIKey_KeychainFirst(t *testing.T) {
	stubs, restore := withKeyStubs(t, true, "", "keychain-key", "env-key")
	defer restore()

	key, source, err := resolveAPIKey(true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "keychain-key" || source != "Keychain" {
		t.Fatalf("expected keychain key/source, got key=%q source=%q", key, source)
	}
	if stubs.envCalls != 0 {
		t.Fatalf("expected no env calls, got envCalls=%d", stubs.envCalls)
	}
}

func TestResolveAPIKey_EnvFallbackWhenAllowed(t *testing.T) {
	stubs, restore := withKeyStubs(t, false, "", "", "env-key")
	defer restore()

	key, source, err := resolveAPIKey(true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "env-key" || source != "Environment Variable" {
		t.Fatalf("expected env key/source, got key=%q source=%q", key, source)
	}
	if stubs.envCalls == 0 {
		t.Fatalf("expected env call")
	}
}

func TestResolveAPIKey_EnvDisabledError(t *testing.T) {
	stubs, restore := withKeyStubs(t, false, "", "", "env-key")
	defer restore()

	key, source, err := resolveAPIKey(false, false)
	if err == nil {
		t.Fatalf("expected error, got key=%q source=%q", key, source)
	}
	if stubs.envCalls != 0 {
		t.Fatalf("expected no env calls, got envCalls=%d", stubs.envCalls)
	}
}

func TestResolveAPIKey_NonInteractiveError(t *testing.T) {
	stubs, restore := withKeyStubs(t, false, "", "", "")
	defer restore()

	key, source, err := resolveAPIKey(false, false)
	if err == nil {
		t.Fatalf("expected error, got key=%q source=%q", key, source)
	}
	if stubs.promptCalls != 0 {
		t.Fatalf("expected no prompt, got promptCalls=%d", stubs.promptCalls)
	}
}

func TestResolveAPIKey_EnvOnly(t *testing.T) {
	stubs, restore := withKeyStubs(t, false, "prompt-key", "keychain-key", "env-key")
	defer restore()

	key, source, err := resolveAPIKey(false, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "env-key" || source != "Environment Variable" {
		t.Fatalf("expected env key/source, got key=%q source=%q", key, source)
	}
	if stubs.keyCalls != 0 {
		t.Fatalf("expected no keychain calls, got keyCalls=%d", stubs.keyCalls)
	}
}

func TestResolveAPIKey_EnvOnlyMissing(t *testing.T) {
	_, restore := withKeyStubs(t, true, "prompt-key", "keychain-key", "")
	defer restore()

	if _, _, err := resolveAPIKey(false, true); err == nil {
		t.Fatalf("expected error when env-only is set without GEMINI_API_KEY")
	}
}

func TestResolveAPIKey_TerminalPrompt(t *testing.T) {
	stubs, restore := withKeyStubs(t, true, "typed-key", "", "")
	defer restore()

	key, source, err := resolveAPIKey(false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "typed-key" || source != "Terminal Prompt" {
		t.Fatalf("expected prompted key, got key=%q source=%q", key, source)
	}
	if stubs.promptCalls != 1 {
		t.Fatalf("expected one prompt, got %d", stubs.promptCalls)
	}
}

func TestOpenCache_UnavailableDegradesToNil(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	// The parent "directory" is a regular file, so the open must fail and
	// degrade to a nil cache instead of aborting the run.
	if cache := openCache(filepath.Join(blocker, "cache.db")); cache != nil {
		cache.Close()
		t.Fatalf("expected nil cache for unusable path")
	}
}

func TestResolveLanguage(t *testing.T) {
	lang, err := resolveLanguage("zh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lang.Code != "zh-Hans" {
		t.Fatalf("resolveLanguage(zh) = %q, want zh-Hans", lang.Code)
	}
	if _, err := resolveLanguage("xx"); err == nil {
		t.Fatalf("expected error for unsupported language")
	}
	if _, err := resolveLanguage("  "); err == nil {
		t.Fatalf("expected error for empty language")
	}
}
