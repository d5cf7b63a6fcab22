package credrank

import (
	"errors"
	"fmt"
	"math"

	"github.com/sourcecred/credrank/core/address"
	"github.com/sourcecred/credrank/core/graph"
)

// Sentinel errors for the dependency-mint post-process.
var (
	// ErrPolicy indicates a mint policy's periods are out of order or
	// carry an illegal weight.
	ErrPolicy = errors.New("credrank: invalid dependency-mint policy")

	// ErrUnknownRecipient indicates a mint recipient is not a vertex of
	// the Markov process graph.
	ErrUnknownRecipient = errors.New("credrank: dependency-mint recipient not in graph")
)

// MintPeriod sets the mint weight from StartMs onward, until a later
// period takes over.
type MintPeriod struct {
	Weight  float64         `json:"weight" yaml:"weight"`
	StartMs graph.Timestamp `json:"startMs" yaml:"startMs"`
}

// MintPolicy awards extra Cred to one recipient, proportional to each
// interval's raw Cred.
type MintPolicy struct {
	Recipient address.NodeAddress
	Periods   []MintPeriod
}

func (p MintPolicy) validate() error {
	for i, period := range p.Periods {
		if math.IsNaN(period.Weight) || math.IsInf(period.Weight, 0) || period.Weight < 0 {
			return fmt.Errorf("%w: recipient %q period %d has weight %v",
				ErrPolicy, p.Recipient, i, period.Weight)
		}
		if i > 0 && period.StartMs < p.Periods[i-1].StartMs {
			return fmt.Errorf("%w: recipient %q periods out of order at index %d",
				ErrPolicy, p.Recipient, i)
		}
	}
	return nil
}

// weightAt returns the weight of the latest period starting at or before
// t, or zero when no period has started yet.
func (p MintPolicy) weightAt(t graph.Timestamp) float64 {
	w := 0.0
	for _, period := range p.Periods {
		if period.StartMs > t {
			break
		}
		w = period.Weight
	}
	return w
}

// ApplyDependencyMint computes the extra Cred each policy awards its
// recipient: for every interval with raw Cred C and active weight w, the
// recipient gains w x C. The returned map has one entry per policy
// recipient; policies and recipients are validated up front and any
// violation aborts the whole computation.
func ApplyDependencyMint(cg *CredGraph, policies []MintPolicy) (map[address.NodeAddress]float64, error) {
	for _, p := range policies {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, ok := cg.chain.VertexIndex(p.Recipient); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRecipient, p.Recipient)
		}
	}

	intervals := cg.chain.Intervals()
	intervalCred := cg.IntervalCred()

	out := make(map[address.NodeAddress]float64, len(policies))
	for _, p := range policies {
		total := out[p.Recipient]
		for ii, iv := range intervals {
			w := p.weightAt(iv.Start)
			if w > 0 {
				total += w * intervalCred[ii]
			}
		}
		out[p.Recipient] = total
	}
	return out, nil
}
