package state

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/tylertayyk/pairs-trading/internal/models"
)

type selectedPairsFile struct {
	Pairs []struct {
		Leg1 string `mapstructure:"leg1"`
		Leg2 string `mapstructure:"leg2"`
	} `mapstructure:"pairs"`
}

// LoadSelectedPairs reads the traded pair universe from a YAML file.
// Duplicate entries are dropped keeping the first occurrence; a pair with
// identical legs is rejected. Leg order is preserved because it decides
// which instrument is regressed on which.
func LoadSelectedPairs(path string) ([]models.Pair, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read selected pairs file: %w", err)
	}

	var file selectedPairsFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to parse selected pairs file: %w", err)
	}
	if len(file.Pairs) == 0 {
		return nil, fmt.Errorf("no pairs listed in %s", path)
	}

	seen := make(map[string]bool)
	pairs := make([]models.Pair, 0, len(file.Pairs))
	for _, entry := range file.Pairs {
		if entry.Leg1 == "" || entry.Leg2 == "" {
			return nil, fmt.Errorf("pair entry with empty leg in %s", path)
		}
		if entry.Leg1 == entry.Leg2 {
			return nil, fmt.Errorf("pair %s/%s has identical legs", entry.Leg1, entry.Leg2)
		}
		p := models.NewPair(entry.Leg1, entry.Leg2)
		if seen[p.Key()] {
			continue
		}
		seen[p.Key()] = true
		pairs = append(pairs, p)
	}
	return pairs, nil
}
