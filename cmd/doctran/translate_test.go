package main

import (
	"strings"
	"testing"
)

func TestValidateDocumentExtension(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"json", "plan.json", false},
		{"json upper", "PLAN.JSON", false},
		{"srt", "movie.srt", true},
		{"no extension", "document", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDocumentExtension(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateDocumentExtension(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestRoot_UnknownSubcommand(t *testing.T) {
	out, err := executeCommand(t, "frobnicate")
	if err == nil {
		t.Fatalf("expected error for unknown subcommand")
	}
	_ = out
	if !strings.Contains(err.Error(), "unsupported document extension") && !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRoot_FlagsWithoutDocument(t *testing.T) {
	out, err := executeCommand(t, "--dry-run")
	if err == nil {
		t.Fatalf("expected error when flags are set without a document")
	}
	if !strings.Contains(out, "Usage:") {
		t.Fatalf("expected usage output, got: %s", out)
	}
}

func TestLanguagesCommand(t *testing.T) {
	out, err := executeCommand(t, "languages")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	for _, want := range []string{"English", "[en]", "Chinese (Simplified)", "[zh-Hans]"} {
		if !strings.Contains(out, want) {
			t.Errorf("languages output missing %q", want)
		}
	}
}

func TestTranslateFlags_Parse(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"dry run", []string{"--dry-run"}},
		{"chunk size", []string{"--chunk-size", "25"}},
		{"selector", []string{"--selector", "walls"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := executeCommand(t, tc.args...)
			if err == nil {
				t.Fatalf("expected command error from missing document argument")
			}
			if strings.Contains(out, "unknown flag") {
				t.Fatalf("expected flag to be parsed, got output: %s", out)
			}
		})
	}
}
