package gemini

import (
	"errors"
	"testing"

	"github.com/oukeidos/doctran/internal/apperrors"
	"google.golang.org/api/googleapi"
)

func assertErrorKind(t *testing.T, err error, want apperrors.Kind) {
	t.Helper()
	kind, ok := apperrors.KindOf(err)
	if !ok {
		t.Fatalf("expected apperrors.Error, got %T: %v", err, err)
	}
	if kind != want {
		t.Fatalf("kind = %q, want %q", kind, want)
	}
}

func TestClassifyGeminiError_CodeMapping(t *testing.T) {
	t.Run("auth errors are non-retryable", func(t *testing.T) {
		err := classifyGeminiError(&googleapi.Error{Code: 401})
		assertErrorKind(t, err, apperrors.KindAuth)
		if apperrors.IsRetryable(err) {
			t.Fatalf("expected non-retryable error for 401")
		}
	})

	t.Run("bad request errors are non-retryable", func(t *testing.T) {
		err := classifyGeminiError(&googleapi.Error{Code: 400})
		assertErrorKind(t, err, apperrors.KindBadRequest)
		if apperrors.IsRetryable(err) {
			t.Fatalf("expected non-retryable error for 400")
		}
	})

	t.Run("rate limit is retryable", func(t *testing.T) {
		err := classifyGeminiError(&googleapi.Error{Code: 429})
		assertErrorKind(t, err, apperrors.KindRateLimit)
		if !apperrors.IsRetryable(err) {
			t.Fatalf("expected retryable error for 429")
		}
	})

	t.Run("server errors are retryable", func(t *testing.T) {
		err := classifyGeminiError(&googleapi.Error{Code: 503})
		assertErrorKind(t, err, apperrors.KindTransient)
		if !apperrors.IsRetryable(err) {
			t.Fatalf("expected retryable error for 503")
		}
	})

	t.Run("transport errors are retryable", func(t *testing.T) {
		err := classifyGeminiError(errors.New("dial tcp: connection refused"))
		assertErrorKind(t, err, apperrors.KindTransient)
		if !apperrors.IsRetryable(err) {
			t.Fatalf("expected retryable error for transport failure")
		}
	})

	t.Run("nil stays nil", func(t *testing.T) {
		if err := classifyGeminiError(nil); err != nil {
			t.Fatalf("classifyGeminiError(nil) = %v", err)
		}
	})
}
