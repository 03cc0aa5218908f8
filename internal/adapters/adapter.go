package adapters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrEmptyResponse is returned when an oracle answers with no text.
var ErrEmptyResponse = errors.New("oracle returned an empty response")

// Oracle is a language-model service invoked with a single prompt.
// Its output carries no structural guarantees and must be treated as untrusted.
type Oracle interface {
	Name() string
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures an oracle implementation.
type Config struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	// WorkDir and ArtifactsDir are used by the codex adapter.
	WorkDir      string
	ArtifactsDir string
	// MockFile holds the scripted answer of the mock oracle.
	MockFile string
	// MockAnalysisFile holds the mock's conversation analysis answer.
	MockAnalysisFile string
}

// New builds the oracle named by cfg.Provider. "none" and "" return a nil oracle.
func New(cfg Config) (Oracle, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none":
		return nil, nil
	case "mock":
		if cfg.MockFile == "" {
			return NewMockAdapter(), nil
		}
		data, err := os.ReadFile(cfg.MockFile)
		if err != nil {
			return nil, fmt.Errorf("read mock oracle file: %w", err)
		}
		// one answer for generation, one for review
		text := string(data)
		return NewMockAdapter(MockResponse{Text: text}, MockResponse{Text: text}), nil
	case "openai":
		a, err := NewOpenAIAdapter(cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	case "codex":
		return &CodexAdapter{WorkDir: cfg.WorkDir, ArtifactsDir: cfg.ArtifactsDir, Timeout: cfg.Timeout}, nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q (expected none, mock, openai, or codex)", cfg.Provider)
	}
}

// NewAnalysisOracle returns the oracle used for conversation analysis. Real
// providers share the generation oracle. The mock gets a separate queue read
// from MockAnalysisFile, so analysis never consumes the generation or review
// answers; without that file it returns a nil oracle.
func NewAnalysisOracle(cfg Config, shared Oracle) (Oracle, error) {
	if strings.ToLower(strings.TrimSpace(cfg.Provider)) != "mock" {
		return shared, nil
	}
	if cfg.MockAnalysisFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(cfg.MockAnalysisFile)
	if err != nil {
		return nil, fmt.Errorf("read mock analysis file: %w", err)
	}
	return NewMockAdapter(MockResponse{Text: string(data)}), nil
}
