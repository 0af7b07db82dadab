package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Locator finds the element most likely to hold a page's main content
type Locator struct {
	// MinText is the normalized text length a landmark must exceed
	MinText int
}

// NewLocator returns a Locator with the given landmark threshold
func NewLocator(minText int) Locator {
	if minText <= 0 {
		minText = DefaultLocatorMinLen
	}
	return Locator{MinText: minText}
}

// Locate returns the main content element under root. The boolean is false
// on a miss, in which case callers substitute the document body.
func (l Locator) Locate(root *goquery.Selection) (*goquery.Selection, bool) {
	if root == nil || root.Length() == 0 {
		return nil, false
	}

	if landmark := l.FromLandmarks(root); landmark != nil {
		return landmark, true
	}

	if best := BestScoring(root); best != nil {
		return best, true
	}

	return nil, false
}

// FromLandmarks returns the first landmark whose text exceeds MinText
func (l Locator) FromLandmarks(root *goquery.Selection) *goquery.Selection {
	for _, selector := range LandmarkSelectors {
		candidate := root.Find(selector).First()
		if candidate.Length() == 0 {
			continue
		}
		if textLength(Normalize(candidate.Text())) > l.MinText {
			return candidate
		}
	}
	return nil
}

// BestScoring runs the scoring pass over every block-level candidate and
// returns the highest scorer. Ties go to the first candidate in document
// order; nothing is returned unless some candidate scores above zero.
func BestScoring(root *goquery.Selection) *goquery.Selection {
	var best *goquery.Selection
	maxScore := 0.0

	root.Find(ScoringCandidates).Each(func(i int, s *goquery.Selection) {
		score := ScoreCandidate(s)
		if score > maxScore {
			maxScore = score
			best = s
		}
	})

	return best
}

// ScoreCandidate computes the content score of a single element:
// length/100, +3 per paragraph, minus 50x link density, +20 per positive
// and -30 per negative class/id hint. Empty elements score zero.
func ScoreCandidate(s *goquery.Selection) float64 {
	if s == nil || s.Length() == 0 {
		return 0
	}

	textLen := textLength(Normalize(s.Text()))
	if textLen == 0 {
		return 0
	}

	score := float64(textLen) / CharsPerPoint
	score += float64(s.Find("p").Length()) * ParagraphWeight
	score -= LinkDensity(s) * LinkDensityPenalty

	hints := classAndID(s)
	for _, hint := range positiveHints {
		if strings.Contains(hints, hint) {
			score += PositiveHintWeight
		}
	}
	for _, hint := range negativeHints {
		if strings.Contains(hints, hint) {
			score -= NegativeHintPenalty
		}
	}

	return score
}

// LinkDensity is the share of an element's text that sits inside anchors
func LinkDensity(s *goquery.Selection) float64 {
	total := textLength(Normalize(s.Text()))
	if total == 0 {
		return 0
	}

	linkLen := 0
	s.Find("a").Each(func(i int, a *goquery.Selection) {
		linkLen += textLength(Normalize(a.Text()))
	})

	return float64(linkLen) / float64(total)
}

// classAndID joins the class and id attributes, lowercased. Missing
// attributes read as empty strings.
func classAndID(s *goquery.Selection) string {
	class, _ := s.Attr("class")
	id, _ := s.Attr("id")
	return strings.ToLower(class + " " + id)
}
