// Package config loads the auction server configuration from yaml.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Bidder struct {
	Strategy string `yaml:"strategy"`
	Seed     int64  `yaml:"seed"`
}

type Config struct {
	RoundsTotal   int `yaml:"rounds_total"`
	InitialBudget int `yaml:"initial_budget"`

	HumanTurnTimeoutMs int `yaml:"human_turn_timeout_ms"`
	AIDecideTimeoutMs  int `yaml:"ai_decide_timeout_ms"`

	// Bidders maps the automated participant ids (ai1..ai3) to their
	// strategies. Missing entries fall back to conservative.
	Bidders map[string]Bidder `yaml:"bidders"`
}

func Defaults() Config {
	return Config{
		RoundsTotal:        10,
		InitialBudget:      1000,
		HumanTurnTimeoutMs: 30000,
		AIDecideTimeoutMs:  2000,
		Bidders: map[string]Bidder{
			"ai1": {Strategy: "conservative"},
			"ai2": {Strategy: "aggressive"},
			"ai3": {Strategy: "random", Seed: 1337},
		},
	}
}

func Load(path string) (Config, error) {
	c := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("auction.yaml: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.RoundsTotal <= 0 {
		return fmt.Errorf("rounds_total must be positive, got %d", c.RoundsTotal)
	}
	if c.InitialBudget < 0 {
		return fmt.Errorf("initial_budget must be non-negative, got %d", c.InitialBudget)
	}
	if c.HumanTurnTimeoutMs <= 0 {
		return fmt.Errorf("human_turn_timeout_ms must be positive, got %d", c.HumanTurnTimeoutMs)
	}
	if c.AIDecideTimeoutMs <= 0 {
		return fmt.Errorf("ai_decide_timeout_ms must be positive, got %d", c.AIDecideTimeoutMs)
	}
	return nil
}
