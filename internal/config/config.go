package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Env                   string `mapstructure:"ENV"`
	Port                  string `mapstructure:"PORT"`
	BundlesDir            string `mapstructure:"BUNDLES_DIR"`
	OutDir                string `mapstructure:"OUT_DIR"`
	Seed                  int64  `mapstructure:"SEED"`
	PatientCount          int    `mapstructure:"PATIENT_COUNT"`
	RenderEnabled         bool   `mapstructure:"RENDER_ENABLED"`
	RenderFont            string `mapstructure:"RENDER_FONT"`
	RenderLabelMinSupport int    `mapstructure:"RENDER_LABEL_MIN_SUPPORT"`
	ConceptTypes          string `mapstructure:"CONCEPT_TYPES"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8000")
	v.SetDefault("BUNDLES_DIR", "data/bundles")
	v.SetDefault("OUT_DIR", "out")
	v.SetDefault("SEED", 1234)
	v.SetDefault("PATIENT_COUNT", 60)
	v.SetDefault("RENDER_ENABLED", true)
	v.SetDefault("RENDER_LABEL_MIN_SUPPORT", 10)
	v.SetDefault("CONCEPT_TYPES", "Finding,Code")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("PORT")
	v.BindEnv("BUNDLES_DIR")
	v.BindEnv("OUT_DIR")
	v.BindEnv("SEED")
	v.BindEnv("PATIENT_COUNT")
	v.BindEnv("RENDER_ENABLED")
	v.BindEnv("RENDER_FONT")
	v.BindEnv("RENDER_LABEL_MIN_SUPPORT")
	v.BindEnv("CONCEPT_TYPES")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.BundlesDir == "" {
		return nil, fmt.Errorf("BUNDLES_DIR is required")
	}
	if cfg.OutDir == "" {
		return nil, fmt.Errorf("OUT_DIR is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env != "production"
}

// ConceptTypeSet parses the CONCEPT_TYPES list into the inclusion set used
// by the concept extractor.
func (c *Config) ConceptTypeSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range strings.Split(c.ConceptTypes, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}
