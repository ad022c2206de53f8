package utils_test

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/clinsight-cli/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"short", "hi", 1},
		{"ascii", strings.Repeat("a", 4000), 1000},
		{"cjk counts runes", strings.Repeat("肺", 8), 2},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, utils.CountTokens(c.in), c.name)
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	text := strings.Repeat("abcd ", 1000)
	trunc := utils.TruncateToTokenLimit(text, 300)
	assert.LessOrEqual(t, utils.CountTokens(trunc), 300)
	assert.NotEmpty(t, trunc)
	assert.Equal(t, "", utils.TruncateToTokenLimit(text, 0))
	assert.Equal(t, "短文本", utils.TruncateToTokenLimit("短文本", 10))
	assert.Equal(t, "病理诊断", utils.TruncateToTokenLimit("病理诊断（病案首页）", 1))
}
