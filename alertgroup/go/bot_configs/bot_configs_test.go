package bot_configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	require.NoError(t, validate())
}

func TestGetBotConfig_FollowsAlias(t *testing.T) {
	cfg, err := GetBotConfig("mac-m1-pro-perf")
	require.NoError(t, err)
	assert.Equal(t, "mac-m1_mini_2020-perf", cfg.Bot)
	assert.Equal(t, "release", cfg.Browser)
}

func TestGetBotConfig_Unknown(t *testing.T) {
	_, err := GetBotConfig("not-a-bot")
	require.Error(t, err)
}

func TestGetIsolateTarget(t *testing.T) {
	for name, test := range map[string]struct {
		bot      string
		expected string
	}{
		"configured": {
			bot:      "android-pixel6-pro-perf",
			expected: "performance_test_suite_android_trichrome_chrome_google_64_32_bundle",
		},
		"webview": {
			bot:      "android-go-wembley_webview-perf",
			expected: WebviewIsolateTarget,
		},
		"default": {
			bot:      "linux-perf",
			expected: DefaultIsolateTarget,
		},
		"unknown bot": {
			bot:      "not-a-bot",
			expected: DefaultIsolateTarget,
		},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expected, GetIsolateTarget(test.bot, "speedometer3"))
		})
	}
}
