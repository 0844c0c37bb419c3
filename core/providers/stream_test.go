package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider replays a fixed chunk sequence.
type scriptedProvider struct {
	chunks []StreamChunk
	err    error
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(context.Context, *Request) (*Response, error) {
	return nil, errors.New("not implemented")
}

func (p *scriptedProvider) Stream(_ context.Context, _ *Request, handler StreamHandler) error {
	for i := range p.chunks {
		if err := handler(&p.chunks[i]); err != nil {
			return err
		}
	}
	return p.err
}

func TestStreamAccumulator(t *testing.T) {
	acc := NewStreamAccumulator()

	acc.Add(&StreamChunk{Type: ChunkTypeStart, Timestamp: time.Now()})
	acc.Add(&StreamChunk{Type: ChunkTypeText, Text: "Hello, "})
	acc.Add(&StreamChunk{Type: ChunkTypeText, Text: "world."})
	acc.Add(&StreamChunk{
		Type:       ChunkTypeEnd,
		StopReason: StopReasonEndTurn,
		Usage:      &Usage{InputTokens: 10, OutputTokens: 4, TotalTokens: 14},
	})

	resp := acc.Response()
	assert.Equal(t, "Hello, world.", resp.Content)
	assert.Equal(t, StopReasonEndTurn, resp.StopReason)
	assert.Equal(t, 14, resp.Usage.TotalTokens)
	assert.Equal(t, 4, acc.ChunkCount())
}

func TestStreamWithCallback(t *testing.T) {
	provider := &scriptedProvider{chunks: []StreamChunk{
		{Type: ChunkTypeStart},
		{Type: ChunkTypeText, Text: "a"},
		{Type: ChunkTypeText, Text: "b"},
		{Type: ChunkTypeEnd, StopReason: StopReasonEndTurn},
	}}

	var seen string
	resp, err := StreamWithCallback(context.Background(), provider, &Request{}, func(text string) {
		seen += text
	})
	require.NoError(t, err)

	assert.Equal(t, "ab", seen)
	assert.Equal(t, "ab", resp.Content)
}

func TestStreamWithCallback_ProviderError(t *testing.T) {
	provider := &scriptedProvider{
		chunks: []StreamChunk{{Type: ChunkTypeStart}},
		err:    errors.New("stream broke"),
	}

	_, err := StreamWithCallback(context.Background(), provider, &Request{}, nil)
	require.Error(t, err)
}
