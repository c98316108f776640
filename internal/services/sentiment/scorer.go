package sentiment

import (
	"math"
	"strings"

	"github.com/jonreiter/govader"

	"CoinDash/internal/domain/models"
	domsvc "CoinDash/internal/domain/service"
)

// Score is a headline's polarity in [-1, 1] and its up/down/flat label.
type Score struct {
	Polarity float64
	Label    string
}

// Scorer rates headlines with the VADER compound score. The analyzer only reads its
// lexicon, so one Scorer serves concurrent callers.
type Scorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func New() *Scorer {
	return &Scorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (s *Scorer) Score(text string) Score {
	p := s.Polarity(text)
	return Score{Polarity: p, Label: models.LabelFor(p)}
}

// Polarity is the compound score of text. Blank text scores 0.
func (s *Scorer) Polarity(text string) float64 {
	text = strings.TrimSpace(strings.ReplaceAll(text, "’", "'"))
	if text == "" {
		return 0
	}
	p := math.Max(-1, math.Min(1, s.analyzer.PolarityScores(text).Compound))
	// keep 4 decimals so identical text never differs in the last bits
	p = math.Round(p*1e4) / 1e4
	if p == 0 {
		return 0
	}
	return p
}

var _ domsvc.HeadlineScorer = (*Scorer)(nil)
