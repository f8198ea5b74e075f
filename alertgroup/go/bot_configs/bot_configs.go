// Package bot_configs maps perf bots to the builds that bisection needs for
// them.
//
// The configurations are embedded from bots.json. A bot either defines all of
// its fields or names another bot through alias.
package bot_configs

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.skia.org/alertgroups/go/sklog"
)

const (
	// DefaultIsolateTarget is built for bots that don't configure one.
	DefaultIsolateTarget = "performance_test_suite"

	// WebviewIsolateTarget is built for all webview bots.
	WebviewIsolateTarget = "performance_webview_test_suite"
)

//go:embed bots.json
var botConfigsJSON []byte
var botConfigs map[string]BotConfig
var once sync.Once

func getBotConfigs() map[string]BotConfig {
	once.Do(func() {
		err := json.Unmarshal(botConfigsJSON, &botConfigs)
		if err != nil {
			botConfigs = make(map[string]BotConfig)
			sklog.Errorf("Fail to load bot config file: %s", err)
		}
	})
	return botConfigs
}

// A BotConfig contains the parameters that make up the configuration.
type BotConfig struct {
	// Alias defines another bot that uses the same configuration as this
	// one.
	Alias string `json:"alias"`
	// Browser is the name of the Chrome browser the benchmarks run on.
	Browser string `json:"browser"`
	// Repo is the repository the bot tests, typically chromium.
	Repo string `json:"repository"`
	// IsolateTarget overrides the target that is built for the bot.
	IsolateTarget string `json:"isolate_target"`
	// Bot is the original key used for this config.
	Bot string
}

// GetBotConfig gets the config for a bot, following aliases.
func GetBotConfig(bot string) (BotConfig, error) {
	configs := getBotConfigs()
	cfg, ok := configs[bot]
	if !ok {
		return BotConfig{}, fmt.Errorf("bot %s was not found in the bot configuration data", bot)
	}
	if cfg.Alias != "" {
		alias := cfg.Alias
		cfg, ok = configs[alias]
		if !ok {
			return BotConfig{}, fmt.Errorf("bot %s uses undefined alias %s", bot, alias)
		}
		cfg.Bot = alias
		return cfg, nil
	}
	cfg.Bot = bot
	return cfg, nil
}

// GetIsolateTarget returns the build target for running benchmark on bot.
// Bots without a configuration get the default target.
func GetIsolateTarget(bot, benchmark string) string {
	if cfg, err := GetBotConfig(bot); err == nil && cfg.IsolateTarget != "" {
		return cfg.IsolateTarget
	}
	if strings.Contains(strings.ToLower(bot), "webview") {
		return WebviewIsolateTarget
	}
	return DefaultIsolateTarget
}

// validate ensures the bot configuration file is correct:
// - aliases point to another bot
// - aliases do not refer to another bot that also uses an alias
// - if alias is defined, no other fields are defined
// - if alias is not defined, browser and repository are defined
func validate() error {
	var configs map[string]BotConfig
	if err := json.Unmarshal(botConfigsJSON, &configs); err != nil {
		return err
	}
	for name, bot := range configs {
		if bot.Alias != "" {
			next, ok := configs[bot.Alias]
			if !ok {
				return fmt.Errorf("%s uses alias %s that is not defined", name, bot.Alias)
			}
			if next.Alias != "" {
				return fmt.Errorf("%s cannot have nested aliases in bot configurations", name)
			}
			if bot.Browser != "" || bot.Repo != "" || bot.IsolateTarget != "" {
				return fmt.Errorf("%s defines both an alias and other fields. Do one or the other.", name)
			}
			continue
		}
		if bot.Browser == "" {
			return fmt.Errorf("%s is missing browser configs", name)
		} else if bot.Repo == "" {
			return fmt.Errorf("%s is missing repository configs", name)
		}
	}
	return nil
}
