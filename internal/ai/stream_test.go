package ai

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStream(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"prefixed", "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\ndata: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n", "ab"},
		{"bare json lines", "{\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n{\"choices\":[{\"delta\":{\"content\":\"y\"}}]}", "xy"},
		{"malformed skipped", "data: {oops\ndata: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\ndata: [DONE]\n", "ok"},
		{"empty choices and role-only deltas", "data: {\"choices\":[]}\ndata: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n", ""},
		{"content after done marker still read", "data: [DONE]\ndata: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n", "late"},
		{"crlf", "data: {\"choices\":[{\"delta\":{\"content\":\"中文\"}}]}\r\n\r\n", "中文"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeStream(context.Background(), strings.NewReader(tc.in), nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeStreamForwardsFragments(t *testing.T) {
	in := "data: {\"choices\":[{\"delta\":{\"content\":\"1\"}}]}\ndata: {\"choices\":[{\"delta\":{\"content\":\"2\"}}]}\n"
	var seen []string
	got, err := DecodeStream(context.Background(), strings.NewReader(in), func(s string) { seen = append(seen, s) })
	require.NoError(t, err)
	assert.Equal(t, "12", got)
	assert.Equal(t, []string{"1", "2"}, seen)
}

type failingReader struct{ data io.Reader }

func (r failingReader) Read(p []byte) (int, error) {
	n, err := r.data.Read(p)
	if errors.Is(err, io.EOF) {
		return n, errors.New("connection reset")
	}
	return n, err
}

func TestDecodeStreamTransportErrorDropsText(t *testing.T) {
	in := failingReader{strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n")}
	got, err := DecodeStream(context.Background(), in, nil)
	require.Error(t, err)
	assert.Empty(t, got)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestDecodeStreamCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := DecodeStream(ctx, strings.NewReader("data: {}\n"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
