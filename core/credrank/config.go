package credrank

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sourcecred/credrank/core/address"
	"github.com/sourcecred/credrank/core/markov"
)

// DefaultEpochWidthMs is one week, the conventional CredRank epoch.
const DefaultEpochWidthMs = 7 * 24 * 60 * 60 * 1000

// Config is the YAML-loadable parameter set of a CredRank run: the four
// transition probabilities, the epoch width, and the dependency-mint
// policies.
type Config struct {
	Parameters   markov.Parameters  `yaml:"parameters"`
	EpochWidthMs int64              `yaml:"epochWidthMs"`
	Dependencies []DependencyConfig `yaml:"dependencies"`
}

// DependencyConfig is the YAML form of one dependency-mint policy. The
// recipient is spelled as its address parts.
type DependencyConfig struct {
	Recipient []string     `yaml:"recipient"`
	Periods   []MintPeriod `yaml:"periods"`
}

// LoadConfig parses a YAML config, filling defaults for absent keys and
// validating the result.
func LoadConfig(data []byte) (Config, error) {
	cfg := Config{
		Parameters:   markov.DefaultParameters(),
		EpochWidthMs: DefaultEpochWidthMs,
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("credrank: parsing config: %w", err)
	}
	if err := cfg.Parameters.Validate(); err != nil {
		return Config{}, err
	}
	if cfg.EpochWidthMs <= 0 {
		return Config{}, fmt.Errorf("%w: epochWidthMs must be positive, got %d",
			markov.ErrParameter, cfg.EpochWidthMs)
	}
	if _, err := cfg.MintPolicies(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MintPolicies converts the dependency configs into validated policies.
func (c Config) MintPolicies() ([]MintPolicy, error) {
	out := make([]MintPolicy, 0, len(c.Dependencies))
	for _, d := range c.Dependencies {
		addr, err := address.NodeAddressFromParts(d.Recipient...)
		if err != nil {
			return nil, fmt.Errorf("%w: recipient %v: %v", ErrPolicy, d.Recipient, err)
		}
		p := MintPolicy{Recipient: addr, Periods: d.Periods}
		if err := p.validate(); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
