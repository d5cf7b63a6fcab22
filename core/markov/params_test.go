package markov_test

import (
	"math"
	"testing"

	"github.com/sourcecred/credrank/core/markov"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameters_Defaults(t *testing.T) {
	p := markov.DefaultParameters()
	require.NoError(t, p.Validate())
	assert.InDelta(t, 0.35, p.EpochOrganicBudget(), 1e-12)
}

func TestParameters_Validate(t *testing.T) {
	cases := []struct {
		name   string
		params markov.Parameters
		ok     bool
	}{
		{"defaults", markov.DefaultParameters(), true},
		{"alpha only", markov.Parameters{Alpha: 1}, true},
		{"zero alpha", markov.Parameters{Alpha: 0, Beta: 0.5}, false},
		{"negative beta", markov.Parameters{Alpha: 0.2, Beta: -0.1}, false},
		{"negative webbing", markov.Parameters{Alpha: 0.2, GammaBackward: -0.01}, false},
		{"sum above one", markov.Parameters{Alpha: 0.5, Beta: 0.3, GammaForward: 0.2, GammaBackward: 0.01}, false},
		{"sum exactly one", markov.Parameters{Alpha: 0.5, Beta: 0.3, GammaForward: 0.1, GammaBackward: 0.1}, true},
		{"nan", markov.Parameters{Alpha: math.NaN()}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.params.Validate()
			if c.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, markov.ErrParameter)
			}
		})
	}
}

func TestParameters_ScenarioRejection(t *testing.T) {
	// Probabilities summing to 1.01 must be rejected.
	p := markov.Parameters{Alpha: 0.21, Beta: 0.4, GammaForward: 0.2, GammaBackward: 0.2}
	assert.ErrorIs(t, p.Validate(), markov.ErrParameter)
}
