package analysis

import (
	"fmt"
	"math"

	"github.com/polimap/vote-latent/internal/errors"
)

// Default raw score range observed in the legislation score data.
const (
	DefaultMinScore = -10.0
	DefaultMaxScore = 12.0
)

// NormalizeScore maps a raw score from [minScore, maxScore] onto
// [-1, 1]. The map is affine and not clamped: raw scores outside the
// source range produce values outside [-1, 1].
func NormalizeScore(score, minScore, maxScore float64) (float64, error) {
	if maxScore == minScore {
		return 0, errors.NewConfigurationError(
			fmt.Sprintf("score range collapsed to a single point: min=%v max=%v", minScore, maxScore), nil)
	}
	return 2.0*(score-minScore)/(maxScore-minScore) - 1.0, nil
}

// validScore rejects the non-numeric values a float field can smuggle in.
func validScore(score float64) bool {
	return !math.IsNaN(score) && !math.IsInf(score, 0)
}
