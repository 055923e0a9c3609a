package hat

import (
	"sort"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

// EligibilityMatcher joins disturbance templates against the stand rows of
// a hypothetical end of year and groups the matching rows.
type EligibilityMatcher struct {
	classifiers []string
	boundary    domain.RecencyBoundary
}

// NewEligibilityMatcher creates a matcher grouping on classifiers.
func NewEligibilityMatcher(classifiers []string, boundary domain.RecencyBoundary) *EligibilityMatcher {
	return &EligibilityMatcher{classifiers: classifiers, boundary: boundary}
}

// Match returns the stand groups of every template, in template order then
// classifier key order, and the ids of templates that matched nothing.
// Rows already disturbed this year are never eligible. A row matched by two
// templates is a configuration error.
func (m *EligibilityMatcher) Match(rows []domain.StandRow, templates []*domain.DisturbanceTemplate) ([]*domain.StandGroup, []string, error) {
	type acc struct {
		group   *domain.StandGroup
		ageArea float64
	}
	perTemplate := make([]map[string]*acc, len(templates))
	for i := range templates {
		perTemplate[i] = map[string]*acc{}
	}

	for _, row := range rows {
		if row.Disturbed {
			continue
		}
		matched := -1
		for i, t := range templates {
			if !m.admits(t, row) {
				continue
			}
			if matched >= 0 {
				return nil, nil, domain.Inconsistent("events_templates",
					"stand %d %s is matched by templates %s and %s",
					row.StandID, describe(row.Classifiers, m.classifiers), templates[matched].ID, t.ID)
			}
			matched = i
		}
		if matched < 0 {
			continue
		}

		t := templates[matched]
		key := row.Classifiers.Key(m.classifiers)
		a, ok := perTemplate[matched][key]
		if !ok {
			a = &acc{group: &domain.StandGroup{
				ID:            t.ID + "|" + key,
				Template:      t,
				TemplateID:    t.ID,
				Classifiers:   row.Classifiers.Project(m.classifiers),
				TimeSinceLast: row.TimeSinceLast,
			}}
			perTemplate[matched][key] = a
		}
		g := a.group
		g.StandIDs = append(g.StandIDs, row.StandID)
		g.Area += row.Area
		a.ageArea += float64(row.Age) * row.Area
		if row.TimeSinceLast < g.TimeSinceLast {
			g.TimeSinceLast = row.TimeSinceLast
		}
	}

	var groups []*domain.StandGroup
	var unmatched []string
	for i, t := range templates {
		if len(perTemplate[i]) == 0 {
			unmatched = append(unmatched, t.ID)
			continue
		}
		keys := make([]string, 0, len(perTemplate[i]))
		for k := range perTemplate[i] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			a := perTemplate[i][k]
			if a.group.Area > 0 {
				a.group.Age = a.ageArea / a.group.Area
			}
			groups = append(groups, a.group)
		}
	}
	return groups, unmatched, nil
}

func (m *EligibilityMatcher) admits(t *domain.DisturbanceTemplate, row domain.StandRow) bool {
	if !row.Classifiers.Matches(t.Classifiers) {
		return false
	}
	return t.Eligibility(m.boundary).Admits(row.Age, row.TimeSinceLast, row.LastDisturbanceType)
}
