package gesture

import (
	"sort"
	"sync"
)

// Template is a trained reference vector for one sign.
type Template struct {
	ID        string        // Unique identifier for the template
	Name      string        // Label reported when the template wins
	Vector    FeatureVector // Averaged training samples
	Tolerance float64       // Maximum distance for a match; 0 means unlimited
}

// Match is the result of comparing an input vector with a template.
type Match struct {
	Template *Template
	Score    float64 // 1/(1+distance), higher is better
	Distance float64
}

// Matcher finds the templates closest to an input vector.
// It is safe for concurrent use.
type Matcher struct {
	mu        sync.RWMutex
	templates []*Template
}

// NewMatcher creates an empty Matcher.
func NewMatcher() *Matcher {
	return &Matcher{
		templates: make([]*Template, 0),
	}
}

// AddTemplate registers a template, replacing any template with the same ID.
func (m *Matcher) AddTemplate(t *Template) {
	if t == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.templates {
		if existing.ID == t.ID {
			m.templates[i] = t
			return
		}
	}
	m.templates = append(m.templates, t)
}

// RemoveTemplate removes a template by its ID.
func (m *Matcher) RemoveTemplate(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, t := range m.templates {
		if t.ID == id {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered templates.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.templates)
}

// Match returns the templates within tolerance of fv, best first.
func (m *Matcher) Match(fv FeatureVector) []Match {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Match
	for _, t := range m.templates {
		distance := Distance(fv, t.Vector)
		if t.Tolerance > 0 && distance > t.Tolerance {
			continue
		}
		matches = append(matches, Match{
			Template: t,
			Score:    1.0 / (1.0 + distance),
			Distance: distance,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches
}
