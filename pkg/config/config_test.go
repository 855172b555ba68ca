package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Deployment)
	assert.Equal(t, "survey-responses", cfg.Search.Index)
	assert.Equal(t, "ko-kr", cfg.Search.QueryLanguage)
	assert.Equal(t, "language", cfg.Sentiment.Provider)
	assert.Contains(t, cfg.Sentiment.NegativeKeywords, "불편")
	assert.Equal(t, 5, cfg.RAG.TopPerColumn)
	assert.Equal(t, 200, cfg.RAG.ColumnSampleLimit)
	assert.Equal(t, 30, cfg.RAG.CacheTTLMin)
	assert.Equal(t, 30, cfg.RateLimit.MaxRequestsPerMinute)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadEnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("SURVEYSENSE_SERVER_PORT", "9090")
	t.Setenv("SURVEYSENSE_SENTIMENT_PROVIDER", "llm")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "llm", cfg.Sentiment.Provider)
}
