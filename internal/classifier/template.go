package classifier

import (
	"context"

	"github.com/ayusman/signstream/internal/gesture"
)

// TemplateClassifier classifies locally by nearest trained template. It
// backs the pipeline when no model service is configured.
type TemplateClassifier struct {
	matcher *gesture.Matcher
}

// NewTemplateClassifier creates a classifier over the given matcher.
func NewTemplateClassifier(m *gesture.Matcher) *TemplateClassifier {
	return &TemplateClassifier{matcher: m}
}

// Matcher returns the underlying template set.
func (c *TemplateClassifier) Matcher() *gesture.Matcher {
	return c.matcher
}

// Classify returns the best template's name with its score as confidence.
// The distribution holds the score of every template within tolerance.
func (c *TemplateClassifier) Classify(ctx context.Context, fv gesture.FeatureVector) Result {
	if err := ctx.Err(); err != nil {
		return Fail(err)
	}
	if c.matcher.Len() == 0 {
		return Fail(ErrNoTemplates)
	}

	matches := c.matcher.Match(fv)
	if len(matches) == 0 {
		return Ok(gesture.Unknown())
	}

	dist := make(map[string]float64, len(matches))
	for _, m := range matches {
		if _, seen := dist[m.Template.Name]; !seen {
			dist[m.Template.Name] = m.Score
		}
	}

	best := matches[0]
	return Ok(gesture.Prediction{
		Label:        best.Template.Name,
		Confidence:   best.Score,
		Distribution: dist,
	})
}
