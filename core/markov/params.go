package markov

import (
	"errors"
	"fmt"
	"math"
)

// ErrParameter indicates the transition probabilities are outside their
// legal range.
var ErrParameter = errors.New("markov: invalid parameters")

// Parameters are the four probabilities that shape every epoch row of the
// Markov process graph. Alpha is also the teleport probability of every
// other non-seed row.
type Parameters struct {
	// Alpha is the radiation (teleport) probability back to the seed.
	// Must be strictly positive or the walk need not converge.
	Alpha float64 `json:"alpha" yaml:"alpha"`

	// Beta is the payout probability from each epoch node to its
	// interval accumulator.
	Beta float64 `json:"beta" yaml:"beta"`

	// GammaForward is the temporal webbing probability from an epoch to
	// the next epoch of the same participant.
	GammaForward float64 `json:"gammaForward" yaml:"gammaForward"`

	// GammaBackward is the temporal webbing probability from an epoch to
	// the previous epoch of the same participant.
	GammaBackward float64 `json:"gammaBackward" yaml:"gammaBackward"`
}

// DefaultParameters returns the standard CredRank parameter set.
func DefaultParameters() Parameters {
	return Parameters{
		Alpha:         0.2,
		Beta:          0.2,
		GammaForward:  0.15,
		GammaBackward: 0.1,
	}
}

// Validate checks the epoch-row probability budget: alpha > 0, the other
// three nonnegative, and alpha + beta + gammaForward + gammaBackward <= 1.
func (p Parameters) Validate() error {
	for name, v := range map[string]float64{
		"alpha":         p.Alpha,
		"beta":          p.Beta,
		"gammaForward":  p.GammaForward,
		"gammaBackward": p.GammaBackward,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrParameter, name)
		}
	}
	if p.Alpha <= 0 {
		return fmt.Errorf("%w: alpha must be > 0, got %v", ErrParameter, p.Alpha)
	}
	if p.Beta < 0 || p.GammaForward < 0 || p.GammaBackward < 0 {
		return fmt.Errorf("%w: beta and webbing probabilities must be >= 0", ErrParameter)
	}
	sum := p.Alpha + p.Beta + p.GammaForward + p.GammaBackward
	if sum > 1 {
		return fmt.Errorf("%w: alpha+beta+gammaForward+gammaBackward = %v exceeds 1", ErrParameter, sum)
	}
	return nil
}

// EpochOrganicBudget is the probability mass an epoch row has left for its
// rewritten organic edges after the gadget probabilities are assigned.
func (p Parameters) EpochOrganicBudget() float64 {
	return 1 - p.Alpha - p.Beta - p.GammaForward - p.GammaBackward
}
