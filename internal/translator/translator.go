// Package translator implements the rate-limited remote batch client.
// Unique texts are partitioned into fixed-size chunks; each chunk is one
// remote request, and a failed chunk degrades only its own members.
package translator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oukeidos/doctran/internal/apperrors"
	"github.com/oukeidos/doctran/internal/chunker"
	"github.com/oukeidos/doctran/internal/gemini"
	"github.com/oukeidos/doctran/internal/language"
	"github.com/oukeidos/doctran/internal/logger"
)

// GetSystemPrompt generates a language-specific system prompt.
func GetSystemPrompt(sourceName, targetName string, glossary map[string]string) string {
	prompt := fmt.Sprintf(`You are a professional %s to %s translator specializing in short technical document strings.
Translate each provided %s string into %s.

1. Input Structure:
- The input is a JSON object with an 'items' array.
- Each item has an 'id' and a 'text' to translate.

2. Output Structure:
- The output MUST be a JSON object with a 'translations' field, containing an array of objects.
- Each object in the array must have:
  - 'id': The ID from the input item.
  - 'text': The %s translation of that item.
- Respond ONLY with the JSON object.

3. Rules:
- Items are independent short labels; do not merge, split, or reorder them.
- Preserve numbers, units, and embedded codes exactly as written.
- Write ONLY the %s translation; do not include the %s source text.`,
		sourceName, targetName, sourceName, targetName, targetName, targetName, sourceName)

	if len(glossary) > 0 {
		terms := make([]string, 0, len(glossary))
		for src := range glossary {
			terms = append(terms, src)
		}
		sort.Strings(terms)
		var b strings.Builder
		b.WriteString("\n\nCRITICAL: The following terms MUST be translated as specified:\n")
		for _, src := range terms {
			fmt.Fprintf(&b, "- %s -> %s\n", src, glossary[src])
		}
		prompt += b.String()
	}

	return prompt
}

// Batch translates unique texts in bounded-size chunks with bounded
// concurrency, retries, and per-chunk failure isolation.
type Batch struct {
	client      gemini.Translator
	chunkSize   int
	concurrency int
	glossary    map[string]string
	usage       gemini.UsageMetadata
	usageMu     sync.Mutex
}

// NewBatch creates a new Batch client.
func NewBatch(client gemini.Translator, chunkSize, concurrency int) (*Batch, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunkSize must be greater than 0, got %d", chunkSize)
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be greater than 0, got %d", concurrency)
	}
	return &Batch{
		client:      client,
		chunkSize:   chunkSize,
		concurrency: concurrency,
	}, nil
}

// SetGlossary sets forced term mappings injected into the system prompt.
func (b *Batch) SetGlossary(mapping map[string]string) {
	b.glossary = mapping
}

// State represents the current state of a chunk translation.
type State int

const (
	StateStarted State = iota
	StateRetrying
	StateCompleted
	StateFailed
	StateCanceled
)

var defaultQPS = 3
var defaultRampUp = 2 * time.Second

// Progress describes one chunk state change.
type Progress struct {
	ChunkIndex      int
	TotalChunks     int
	CompletedChunks int // chunks settled so far, success or failure
	Attempt         int
	State           State
	Err             error
}

// Percent returns overall chunk completion as 0..100.
func (p Progress) Percent() float64 {
	if p.TotalChunks <= 0 {
		return 100
	}
	return float64(p.CompletedChunks) / float64(p.TotalChunks) * 100
}

// Result is the outcome of one batch call. Texts is always the same length
// and order as the input; positions whose chunk failed carry their own
// source text and are marked false in OK.
type Result struct {
	Texts        []string
	OK           []bool
	FailedChunks []int
	TotalChunks  int
}

// Translate translates texts into tgt. Cancellation is checked before each
// chunk dispatch; results of already-completed chunks are retained and
// returned as a partial result.
func (b *Batch) Translate(ctx context.Context, texts []string, src, tgt language.Language, onProgress func(Progress)) Result {
	result := Result{
		Texts: make([]string, len(texts)),
		OK:    make([]bool, len(texts)),
	}
	if len(texts) == 0 {
		return result
	}

	b.client.SetSystemInstruction(GetSystemPrompt(src.Name, tgt.Name, b.glossary))

	chunks := chunker.Split(texts, b.chunkSize)
	result.TotalChunks = len(chunks)
	translated := make([][]string, len(chunks))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var completed int

	rateCh, stopRate := newRateLimiter(defaultQPS)
	defer stopRate()

	jobs := make(chan int, len(chunks))
	for i := range chunks {
		jobs <- i
	}
	close(jobs)

	// The sink is a plain callback with no locking of its own, so every
	// invocation happens under mu: events arrive serialized and
	// CompletedChunks is non-decreasing across them.
	settle := func(i int, texts []string, attempt int, err error) {
		mu.Lock()
		defer mu.Unlock()
		translated[i] = texts
		completed++
		if onProgress == nil {
			return
		}
		state := StateCompleted
		if err != nil {
			state = StateFailed
		}
		onProgress(Progress{
			ChunkIndex:      i,
			TotalChunks:     len(chunks),
			CompletedChunks: completed,
			Attempt:         attempt,
			State:           state,
			Err:             err,
		})
	}

	workers := b.concurrency
	if workers > len(chunks) {
		workers = len(chunks)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			if delay := rampDelay(worker, workers, defaultRampUp); delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if rateCh != nil {
					select {
					case <-ctx.Done():
						return
					case <-rateCh:
					}
				}
				chunk := chunks[i]

				var resp *gemini.ResponseData
				var merged []string
				var err error
				const maxAttempts = 3
				attemptsUsed := 0

				for attempt := 1; attempt <= maxAttempts; attempt++ {
					attemptsUsed = attempt
					if onProgress != nil {
						state := StateStarted
						if attempt > 1 {
							state = StateRetrying
						}
						mu.Lock()
						onProgress(Progress{
							ChunkIndex:      i,
							TotalChunks:     len(chunks),
							CompletedChunks: completed,
							Attempt:         attempt,
							State:           state,
							Err:             err,
						})
						mu.Unlock()
					}

					resp, err = b.client.Translate(ctx, prepareRequest(chunk))
					if err == nil {
						b.usageMu.Lock()
						b.usage.Add(resp.Usage)
						b.usageMu.Unlock()

						merged, err = mergeChunk(chunk, resp)
						if err != nil {
							err = apperrors.Validation(err)
						}
					}

					if err == nil {
						settle(i, merged, attempt, nil)
						break
					}

					retry, backoff := retryDecision(ctx, err, attempt, maxAttempts)
					if !retry {
						break
					}
					select {
					case <-ctx.Done():
						return
					case <-time.After(backoff):
					}
				}

				if err != nil {
					settle(i, nil, attemptsUsed, err)
					if attemptsUsed >= maxAttempts && apperrors.IsRetryable(err) {
						logger.Error("Chunk failed after maximum retries", "index", i, "attempts", attemptsUsed, "error", err)
					} else {
						logger.Error("Chunk failed without retry", "index", i, "attempts", attemptsUsed, "error", err)
					}
				}
			}
		}(w)
	}

	wg.Wait()
	if ctx.Err() != nil && onProgress != nil {
		mu.Lock()
		onProgress(Progress{
			ChunkIndex:      -1,
			TotalChunks:     len(chunks),
			CompletedChunks: completed,
			State:           StateCanceled,
			Err:             ctx.Err(),
		})
		mu.Unlock()
	}

	for i, chunk := range chunks {
		if translated[i] == nil {
			result.FailedChunks = append(result.FailedChunks, i)
			copy(result.Texts[chunk.Start:], chunk.Texts)
			continue
		}
		for j, text := range translated[i] {
			result.Texts[chunk.Start+j] = text
			result.OK[chunk.Start+j] = true
		}
	}

	return result
}

func prepareRequest(chunk chunker.Chunk) gemini.RequestData {
	items := make([]gemini.ItemData, len(chunk.Texts))
	for i, text := range chunk.Texts {
		items[i] = gemini.ItemData{
			ID:   chunk.Start + i,
			Text: text,
		}
	}
	return gemini.RequestData{Items: items}
}

func mergeChunk(chunk chunker.Chunk, resp *gemini.ResponseData) ([]string, error) {
	expected := make(map[int]bool, len(chunk.Texts))
	for i := range chunk.Texts {
		expected[chunk.Start+i] = true
	}

	transMap := make(map[int]string, len(resp.Translations))
	for _, tr := range resp.Translations {
		if _, exists := transMap[tr.ID]; exists {
			return nil, fmt.Errorf("duplicate translation ID detected in model output: %d", tr.ID)
		}
		if !expected[tr.ID] {
			return nil, fmt.Errorf("unexpected translation ID (hallucination) from model: %d", tr.ID)
		}
		transMap[tr.ID] = tr.Text
	}

	if len(transMap) != len(chunk.Texts) {
		return nil, fmt.Errorf("translation count mismatch: expected %d, got %d", len(chunk.Texts), len(transMap))
	}

	results := make([]string, len(chunk.Texts))
	for i, source := range chunk.Texts {
		text := strings.TrimSpace(transMap[chunk.Start+i])
		if text == "" && strings.TrimSpace(source) != "" {
			return nil, fmt.Errorf("hallucination detected: empty translation for item ID %d", chunk.Start+i)
		}
		results[i] = text
	}

	return results, nil
}

func retryDecision(ctx context.Context, err error, attempt, maxAttempts int) (bool, time.Duration) {
	if err == nil {
		return false, 0
	}
	if attempt >= maxAttempts {
		return false, 0
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, 0
	}
	if !apperrors.IsRetryable(err) {
		return false, 0
	}
	base := 1 * time.Second
	maxBackoff := 20 * time.Second
	jitterMax := 1 * time.Second

	backoff := base << (attempt - 1)
	if apperrors.IsRateLimit(err) {
		backoff = backoff * 2
	}
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(jitterMax)))
	return true, backoff + jitter
}

func newRateLimiter(qps int) (<-chan time.Time, func()) {
	if qps <= 0 {
		return nil, func() {}
	}
	interval := time.Second / time.Duration(qps)
	ticker := time.NewTicker(interval)
	return ticker.C, ticker.Stop
}

func rampDelay(worker, concurrency int, ramp time.Duration) time.Duration {
	if ramp <= 0 || concurrency <= 1 {
		return 0
	}
	return time.Duration(int64(ramp) * int64(worker) / int64(concurrency-1))
}

// GetUsage returns the total token usage across all chunks so far.
func (b *Batch) GetUsage() gemini.UsageMetadata {
	b.usageMu.Lock()
	defer b.usageMu.Unlock()
	return b.usage
}
