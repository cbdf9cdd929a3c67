package config

import (
	"fmt"
	"medisched/pkg/sanitizer"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultThreshold    = 0.35
	DefaultRankingDepth = 2
	DefaultScoreDepth   = 3
	DefaultSpecialty    = "General Medicine"
)

// Config is the rule table behind symptom triage. Matrix maps a symptom to
// the weight it adds to each specialty.
type Config struct {
	Symptoms         []string                      `yaml:"symptoms"`
	Matrix           map[string]map[string]float64 `yaml:"specialty_matrix"`
	Threshold        float64                       `yaml:"threshold"`
	RankingDepth     int                           `yaml:"ranking_depth"`
	ScoreDepth       int                           `yaml:"score_depth"`
	DefaultSpecialty string                        `yaml:"default_specialty"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read triage config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, fills defaults and folds symptom names so lookups are
// case-insensitive.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse triage config: %w", err)
	}

	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.RankingDepth == 0 {
		cfg.RankingDepth = DefaultRankingDepth
	}
	if cfg.ScoreDepth == 0 {
		cfg.ScoreDepth = DefaultScoreDepth
	}
	if strings.TrimSpace(cfg.DefaultSpecialty) == "" {
		cfg.DefaultSpecialty = DefaultSpecialty
	}

	matrix := make(map[string]map[string]float64, len(cfg.Matrix))
	for symptom, weights := range cfg.Matrix {
		matrix[sanitizer.NormalizeSymptom(symptom)] = weights
	}
	cfg.Matrix = matrix

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var problems []string

	if len(c.Symptoms) == 0 {
		problems = append(problems, "symptoms cannot be empty")
	}
	if c.Threshold < 0 {
		problems = append(problems, fmt.Sprintf("threshold cannot be negative, got: %v", c.Threshold))
	}
	if c.RankingDepth < 0 || c.ScoreDepth < 0 {
		problems = append(problems, "ranking_depth and score_depth cannot be negative")
	}
	for symptom, weights := range c.Matrix {
		for specialty, w := range weights {
			if w < 0 {
				problems = append(problems, fmt.Sprintf("weight of %s for %q cannot be negative", specialty, symptom))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid triage config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Known reports whether symptom, already normalized, is in the symptom list.
func (c *Config) Known(symptom string) bool {
	for _, s := range c.Symptoms {
		if sanitizer.NormalizeSymptom(s) == symptom {
			return true
		}
	}
	return false
}
