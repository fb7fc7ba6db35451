package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"smartcal/internal/config"
)

func TestDisplaySetting(t *testing.T) {
	assert.Equal(t, "gemini", displaySetting(config.StoreKeyLLMProvider, "gemini"))
	assert.Equal(t, "", displaySetting(config.StoreKeyLLMAPIKey, ""))
	assert.Equal(t, "****", displaySetting(config.StoreKeyLLMAPIKey, "short"))
	assert.Equal(t, "AIza****wxyz", displaySetting(config.StoreKeyLLMAPIKey, "AIzaSyD-abcdwxyz"))
}

func TestSettingValidation(t *testing.T) {
	assert.True(t, isSettingKey("llm.apiKey"))
	assert.False(t, isSettingKey("google.token.default"))
	assert.True(t, isProvider("Gemini"))
	assert.False(t, isProvider("claude"))
}
