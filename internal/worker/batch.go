package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/chorus/internal/model"
)

// Asker runs one prompt end to end and returns the stored run
type Asker interface {
	Ask(ctx context.Context, prompt string) (*model.RunRecord, error)
}

// PromptResult is the outcome of one batch prompt
type PromptResult struct {
	Prompt string
	Record *model.RunRecord
	Error  error
}

// BatchProcessor asks multiple prompts concurrently
type BatchProcessor struct {
	asker       Asker
	concurrency int
}

// NewBatchProcessor creates a processor running at most concurrency prompts at a time
func NewBatchProcessor(asker Asker, concurrency int) *BatchProcessor {
	return &BatchProcessor{asker: asker, concurrency: concurrency}
}

// ProcessPrompts asks every prompt and returns results in input order.
// Prompts not started before ctx is done carry the context error.
func (b *BatchProcessor) ProcessPrompts(ctx context.Context, prompts []string) []*PromptResult {
	pool := NewPool[*PromptResult](ctx, b.concurrency)
	for _, prompt := range prompts {
		pool.Go(func(ctx context.Context) *PromptResult {
			if err := ctx.Err(); err != nil {
				return &PromptResult{Prompt: prompt, Error: err}
			}
			rec, err := b.asker.Ask(ctx, prompt)
			return &PromptResult{Prompt: prompt, Record: rec, Error: err}
		})
	}
	return pool.Wait()
}

// ProcessFile reads prompts from a file and asks them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*PromptResult, error) {
	prompts, err := ReadPromptsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	return b.ProcessPrompts(ctx, prompts), nil
}

// ReadPromptsFromFile reads one prompt per line.
// Blank lines and # comments are skipped; repeated prompts are asked once.
func ReadPromptsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}
	defer func() { _ = file.Close() }()

	var prompts []string
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		prompts = append(prompts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan prompts: %w", err)
	}
	return prompts, nil
}
