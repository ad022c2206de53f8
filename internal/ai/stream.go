package ai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type streamDelta struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// DecodeStream reads newline-delimited completion fragments until EOF and
// returns the concatenated content. Lines may carry a "data:" prefix; blank
// lines and fragments that are not valid JSON (including "[DONE]") are
// skipped. onDelta, if set, sees each non-empty fragment as it arrives.
func DecodeStream(ctx context.Context, r io.Reader, onDelta func(string)) (string, error) {
	var acc strings.Builder
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		var d streamDelta
		if err := json.Unmarshal([]byte(data), &d); err != nil {
			continue
		}
		if len(d.Choices) == 0 {
			continue
		}
		content := d.Choices[0].Delta.Content
		if content == "" {
			continue
		}
		acc.WriteString(content)
		if onDelta != nil {
			onDelta(content)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("stream read: %w", err)
	}
	return acc.String(), nil
}
