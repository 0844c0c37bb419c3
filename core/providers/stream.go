package providers

import (
	"context"
	"strings"
	"sync"
	"time"
)

// StreamChunk represents a single chunk from a streaming response
type StreamChunk struct {
	// Index is the sequence number of this chunk
	Index int `json:"index"`

	// Text is the content delta
	Text string `json:"text"`

	// Type indicates the chunk type
	Type StreamChunkType `json:"type"`

	// Usage is populated on the final chunk (if available)
	Usage *Usage `json:"usage,omitempty"`

	// StopReason is populated on the final chunk
	StopReason StopReason `json:"stop_reason,omitempty"`

	// Timestamp when this chunk was received
	Timestamp time.Time `json:"timestamp"`
}

// StreamChunkType identifies what kind of content the chunk contains
type StreamChunkType string

const (
	ChunkTypeText  StreamChunkType = "text"
	ChunkTypeStart StreamChunkType = "start"
	ChunkTypeEnd   StreamChunkType = "end"
	ChunkTypeError StreamChunkType = "error"
)

// StreamAccumulator collects streaming chunks into a complete response
type StreamAccumulator struct {
	mu sync.Mutex

	chunks     int
	text       strings.Builder
	usage      Usage
	stopReason StopReason
	model      string

	startTime time.Time
	endTime   time.Time
}

// NewStreamAccumulator creates a new accumulator
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{startTime: time.Now()}
}

// Add accumulates a chunk
func (a *StreamAccumulator) Add(chunk *StreamChunk) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.chunks++

	switch chunk.Type {
	case ChunkTypeText:
		a.text.WriteString(chunk.Text)

	case ChunkTypeEnd:
		a.endTime = time.Now()
		if chunk.Usage != nil {
			a.usage = *chunk.Usage
		}
		if chunk.StopReason != "" {
			a.stopReason = chunk.StopReason
		}
	}
}

// Response builds the final response from accumulated chunks
func (a *StreamAccumulator) Response() *Response {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &Response{
		Content:    a.text.String(),
		Model:      a.model,
		StopReason: a.stopReason,
		Usage:      a.usage,
	}
}

// Text returns the accumulated text so far
func (a *StreamAccumulator) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text.String()
}

// ChunkCount returns the number of chunks received
func (a *StreamAccumulator) ChunkCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chunks
}

// StreamCollector wraps StreamHandler with automatic accumulation
type StreamCollector struct {
	accumulator *StreamAccumulator
	onChunk     func(chunk *StreamChunk)
}

// NewStreamCollector creates a collector with an optional per-chunk callback
func NewStreamCollector(onChunk func(chunk *StreamChunk)) *StreamCollector {
	return &StreamCollector{
		accumulator: NewStreamAccumulator(),
		onChunk:     onChunk,
	}
}

// Handler returns a StreamHandler that accumulates and optionally forwards chunks
func (c *StreamCollector) Handler() StreamHandler {
	return func(chunk *StreamChunk) error {
		c.accumulator.Add(chunk)
		if c.onChunk != nil {
			c.onChunk(chunk)
		}
		return nil
	}
}

// Response returns the accumulated response
func (c *StreamCollector) Response() *Response {
	return c.accumulator.Response()
}

// StreamWithCallback is a convenience function to stream with a simple text callback
func StreamWithCallback(
	ctx context.Context,
	provider Provider,
	req *Request,
	onText func(text string),
) (*Response, error) {
	collector := NewStreamCollector(func(chunk *StreamChunk) {
		if chunk.Type == ChunkTypeText && onText != nil {
			onText(chunk.Text)
		}
	})

	if err := provider.Stream(ctx, req, collector.Handler()); err != nil {
		return nil, err
	}

	return collector.Response(), nil
}
