package generator

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Usage is the token accounting reported with a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

var tokenHeader = []string{
	"timestamp", "request_id", "prompt", "reply",
	"prompt_tokens", "completion_tokens", "total_tokens", "cumulative_tokens",
}

// TokenLedger appends one CSV row per generator request.
type TokenLedger struct {
	mu         sync.Mutex
	path       string
	cumulative int
	now        func() time.Time
}

// OpenTokenLedger prepares path, writing the header when the file is new.
func OpenTokenLedger(path string) (*TokenLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create token ledger dir: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create token ledger: %w", err)
		}
		w := csv.NewWriter(f)
		_ = w.Write(tokenHeader)
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
	}
	return &TokenLedger{path: path, now: time.Now}, nil
}

// Record appends a row and advances the cumulative total.
func (l *TokenLedger) Record(requestID, prompt, reply string, u Usage) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := u.TotalTokens
	if total == 0 {
		total = u.PromptTokens + u.CompletionTokens
	}
	l.cumulative += total

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	_ = w.Write([]string{
		l.now().UTC().Format(time.RFC3339Nano),
		requestID,
		prompt,
		reply,
		strconv.Itoa(u.PromptTokens),
		strconv.Itoa(u.CompletionTokens),
		strconv.Itoa(total),
		strconv.Itoa(l.cumulative),
	})
	w.Flush()
	return w.Error()
}

// Cumulative returns the total tokens recorded by this ledger.
func (l *TokenLedger) Cumulative() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cumulative
}
