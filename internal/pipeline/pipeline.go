// Package pipeline orchestrates one translation run: filter, deduplicate,
// cache lookup, remote batch for the misses, cache write-back, reassembly,
// and the edit-history ledger around the document write.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oukeidos/doctran/internal/apperrors"
	"github.com/oukeidos/doctran/internal/cachestore"
	"github.com/oukeidos/doctran/internal/document"
	"github.com/oukeidos/doctran/internal/history"
	"github.com/oukeidos/doctran/internal/language"
	"github.com/oukeidos/doctran/internal/logger"
	"github.com/oukeidos/doctran/internal/textunit"
	"github.com/oukeidos/doctran/internal/translator"
)

// Config bounds one run. Zero values take the defaults below.
type Config struct {
	ChunkSize   int
	Concurrency int
}

const (
	DefaultChunkSize   = 50
	DefaultConcurrency = 4
	MaxConcurrency     = 8
)

// Normalize fills defaults and clamps out-of-range values.
func (c *Config) Normalize() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Concurrency > MaxConcurrency {
		c.Concurrency = MaxConcurrency
	}
}

// Remote is the batch client surface the orchestrator drives. Satisfied by
// *translator.Batch.
type Remote interface {
	Translate(ctx context.Context, texts []string, src, tgt language.Language, onProgress func(translator.Progress)) translator.Result
}

// Progress is one orchestrator progress event. Percent weighs cache hits as
// immediately complete and remote chunks by their completion fraction.
type Progress struct {
	UniqueCount     int
	CacheHits       int
	TotalChunks     int
	CompletedChunks int
	Percent         float64
}

// Statistics accumulates outcomes across all Translate calls on one Service.
type Statistics struct {
	TotalCount   int
	UniqueCount  int
	CacheHits    int
	RemoteCount  int
	SuccessCount int
	FailureCount int
	Elapsed      time.Duration
}

// Outcome reports one Translate call. OK[i] is true when Texts[i] carries a
// real translation; passthrough and failed positions keep their own source
// text and stay false.
type Outcome struct {
	Texts        []string
	OK           []bool
	TotalCount   int
	UniqueCount  int
	CacheHits    int
	RemoteCount  int
	FailureCount int
	FailedChunks int
}

// TranslateOptions carries per-call knobs.
type TranslateOptions struct {
	OnProgress func(Progress)
}

// Service wires the cache, ledger, and remote client together. All
// dependencies are explicit; there are no package-level singletons.
type Service struct {
	cache   *cachestore.Store
	ledger  *history.Store
	remote  Remote
	statsMu sync.Mutex
	stats   Statistics
}

// NewService builds a Service. cache and ledger may be nil in degraded runs
// (dry runs, tests); remote must not be.
func NewService(cache *cachestore.Store, ledger *history.Store, remote Remote) (*Service, error) {
	if remote == nil {
		return nil, fmt.Errorf("remote client must not be nil")
	}
	return &Service{cache: cache, ledger: ledger, remote: remote}, nil
}

// Translate returns one translated text per input, same length and order.
// Non-translatable inputs pass through untouched; duplicates are translated
// once; cache hits never reach the remote; fallback results (failed chunks)
// return their source text and are never written to the cache.
func (s *Service) Translate(ctx context.Context, texts []string, src, tgt language.Language, opts TranslateOptions) (Outcome, error) {
	start := time.Now()
	out := Outcome{TotalCount: len(texts)}

	plan := textunit.BuildPlan(texts)
	out.UniqueCount = len(plan.Unique)

	results := make([]string, len(plan.Unique))
	okUnique := make([]bool, len(plan.Unique))
	var missTexts []string
	var missIdx []int
	for i, text := range plan.Unique {
		if s.cache != nil {
			if cached, ok := s.cache.Get(text, tgt.Code); ok {
				results[i] = cached
				okUnique[i] = true
				out.CacheHits++
				continue
			}
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	out.RemoteCount = len(missTexts)

	emit := func(completedChunks, totalChunks int) {
		if opts.OnProgress == nil {
			return
		}
		p := Progress{
			UniqueCount:     out.UniqueCount,
			CacheHits:       out.CacheHits,
			TotalChunks:     totalChunks,
			CompletedChunks: completedChunks,
		}
		if out.UniqueCount == 0 {
			p.Percent = 100
		} else {
			frac := 0.0
			if totalChunks > 0 {
				frac = float64(completedChunks) / float64(totalChunks)
			}
			p.Percent = (float64(out.CacheHits) + float64(out.RemoteCount)*frac) / float64(out.UniqueCount) * 100
		}
		opts.OnProgress(p)
	}

	if len(missTexts) > 0 {
		emit(0, 0)
		res := s.remote.Translate(ctx, missTexts, src, tgt, func(tp translator.Progress) {
			if tp.State == translator.StateCompleted || tp.State == translator.StateFailed || tp.State == translator.StateCanceled {
				emit(tp.CompletedChunks, tp.TotalChunks)
			}
		})
		out.FailedChunks = len(res.FailedChunks)
		for j, text := range res.Texts {
			results[missIdx[j]] = text
			if res.OK[j] {
				okUnique[missIdx[j]] = true
				if s.cache != nil {
					s.cache.Set(missTexts[j], tgt.Code, text)
				}
			} else {
				out.FailureCount++
			}
		}
	}
	emit(1, 1)

	out.Texts, out.OK = plan.Expand(results, okUnique, texts)

	s.statsMu.Lock()
	s.stats.TotalCount += out.TotalCount
	s.stats.UniqueCount += out.UniqueCount
	s.stats.CacheHits += out.CacheHits
	s.stats.RemoteCount += out.RemoteCount
	s.stats.SuccessCount += out.RemoteCount - out.FailureCount
	s.stats.FailureCount += out.FailureCount
	s.stats.Elapsed += time.Since(start)
	s.statsMu.Unlock()

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// ApplyMeta tags ledger records written by ApplyAndRecord.
type ApplyMeta struct {
	SourceLang string
	TargetLang string
}

// ApplyAndRecord writes edits (entity id -> new text) into store atomically
// and appends one translate record per applied edit. A ledger append failure
// does not roll back the document: the returned result is still valid and the
// error carries the history_append kind so callers can downgrade it to a
// warning.
func (s *Service) ApplyAndRecord(store document.Store, edits map[string]string, meta ApplyMeta) (document.ApplyResult, error) {
	result, err := document.Apply(store, edits)
	if err != nil {
		return result, err
	}

	if s.ledger == nil {
		return result, nil
	}
	var appendErr error
	for _, edit := range result.Applied {
		_, err := s.ledger.Append(history.Record{
			EntityID:       edit.ID,
			EntityKind:     edit.Kind,
			ContainerTag:   edit.Tag,
			OriginalText:   edit.OriginalText,
			TranslatedText: edit.NewText,
			SourceLang:     meta.SourceLang,
			TargetLang:     meta.TargetLang,
			Operation:      history.OpTranslate,
		})
		if err != nil && appendErr == nil {
			appendErr = err
		}
	}
	if appendErr != nil {
		logger.Warn("Edit applied but history append failed", "error", appendErr)
		return result, apperrors.HistoryAppend(appendErr)
	}
	return result, nil
}

// UndoCandidates lists the records Undo would consider, most recent first.
func (s *Service) UndoCandidates() ([]history.Record, error) {
	if s.ledger == nil {
		return nil, fmt.Errorf("no history ledger configured")
	}
	return s.ledger.UndoCandidates(history.MaxUndoCandidates)
}

// Undo walks the most recent translate records and restores the original
// text of the first one whose entity still exists. Candidates whose entity
// is gone are skipped with the ledger untouched; if every candidate's entity
// is gone the call fails with entity_gone. The restore itself is appended as
// a new undo record with original and translated text swapped; nothing is
// ever removed from the ledger.
func (s *Service) Undo(store document.Store) (history.Record, error) {
	if s.ledger == nil {
		return history.Record{}, fmt.Errorf("no history ledger configured")
	}
	candidates, err := s.ledger.UndoCandidates(history.MaxUndoCandidates)
	if err != nil {
		return history.Record{}, err
	}
	if len(candidates) == 0 {
		return history.Record{}, fmt.Errorf("nothing to undo")
	}

	for _, target := range candidates {
		err := store.Update(func(tx document.Tx) error {
			if _, ok := tx.Lookup(target.EntityID); !ok {
				return apperrors.EntityGone(fmt.Errorf("entity %s no longer exists", target.EntityID))
			}
			return tx.SetText(target.EntityID, target.OriginalText)
		})
		if err != nil {
			if apperrors.IsEntityGone(err) {
				logger.Warn("Undo candidate's entity is gone; trying next", "entity", target.EntityID)
				continue
			}
			return target, apperrors.ApplyAborted(err)
		}

		undone, err := s.ledger.Append(history.Record{
			EntityID:       target.EntityID,
			EntityKind:     target.EntityKind,
			ContainerTag:   target.ContainerTag,
			OriginalText:   target.TranslatedText,
			TranslatedText: target.OriginalText,
			SourceLang:     target.TargetLang,
			TargetLang:     target.SourceLang,
			Operation:      history.OpUndo,
		})
		if err != nil {
			logger.Warn("Undo applied but history append failed", "error", err)
			return target, apperrors.HistoryAppend(err)
		}
		return undone, nil
	}

	return history.Record{}, apperrors.EntityGone(
		fmt.Errorf("all %d undo candidates reference entities that no longer exist", len(candidates)))
}

// GetStatistics returns accumulated counters across all Translate calls.
func (s *Service) GetStatistics() Statistics {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// ClearCache empties the translation cache.
func (s *Service) ClearCache() error {
	if s.cache == nil {
		return fmt.Errorf("no cache configured")
	}
	return s.cache.Clear()
}

// ClearHistory empties the edit ledger.
func (s *Service) ClearHistory() error {
	if s.ledger == nil {
		return fmt.Errorf("no history ledger configured")
	}
	return s.ledger.Clear()
}
