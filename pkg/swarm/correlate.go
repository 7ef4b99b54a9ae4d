package swarm

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// Correlation links two source result sets by shared vocabulary.
type Correlation struct {
	SourceA      string   `json:"sourceA"`
	SourceB      string   `json:"sourceB"`
	Similarity   float64  `json:"similarity"`
	Relationship string   `json:"relationship"`
	KeyTerms     []string `json:"keyTerms"`
}

const maxKeyTerms = 20

var (
	technicalTermRe = regexp.MustCompile(`(?i)\b(?:auth|authentication|service|api|database|error|failure|performance|security|config|deploy|test)\w*\b`)
	identifierRe    = regexp.MustCompile(`\b[a-z]+(?:[A-Z][a-z]*)+\b`)
)

// pairRule fixes the threshold and relationship label per source pair.
type pairRule struct {
	a, b         string
	threshold    float64
	relationship string
}

var pairRules = []pairRule{
	{"code", "jira", 0.6, "related_issue"},
	{"code", "aoma", 0.5, "documentation"},
	{"jira", "aoma", 0.5, "historical_context"},
}

// Correlate extracts key terms from each populated source's result JSON and
// emits every pair whose Jaccard similarity clears its threshold.
func Correlate(results CrossVectorResults) []Correlation {
	terms := map[string][]string{}
	if len(results.Code) > 0 {
		terms["code"] = ExtractKeyTerms(toJSON(results.Code))
	}
	if len(results.Jira) > 0 {
		terms["jira"] = ExtractKeyTerms(toJSON(results.Jira))
	}
	if results.AOMA != nil {
		terms["aoma"] = ExtractKeyTerms(toJSON(results.AOMA))
	}

	var correlations []Correlation
	for _, rule := range pairRules {
		a, okA := terms[rule.a]
		b, okB := terms[rule.b]
		if !okA || !okB {
			continue
		}

		similarity, shared := jaccard(a, b)
		if similarity < rule.threshold {
			continue
		}
		correlations = append(correlations, Correlation{
			SourceA:      rule.a,
			SourceB:      rule.b,
			Similarity:   similarity,
			Relationship: rule.relationship,
			KeyTerms:     shared,
		})
	}
	return correlations
}

// ExtractKeyTerms pulls technical keywords and camelCase identifiers from raw
// text, lowercased, first-seen order, capped at 20 unique terms.
func ExtractKeyTerms(text string) []string {
	seen := map[string]bool{}
	var terms []string

	add := func(matches []string) {
		for _, m := range matches {
			if len(terms) >= maxKeyTerms {
				return
			}
			term := strings.ToLower(m)
			if !seen[term] {
				seen[term] = true
				terms = append(terms, term)
			}
		}
	}
	add(technicalTermRe.FindAllString(text, -1))
	add(identifierRe.FindAllString(text, -1))
	return terms
}

// jaccard computes |A∩B| / |A∪B| over two term slices and returns the sorted
// intersection.
func jaccard(a, b []string) (float64, []string) {
	setA := map[string]bool{}
	for _, t := range a {
		setA[t] = true
	}
	setB := map[string]bool{}
	for _, t := range b {
		setB[t] = true
	}

	union := map[string]bool{}
	for t := range setA {
		union[t] = true
	}
	for t := range setB {
		union[t] = true
	}
	if len(union) == 0 {
		return 0, nil
	}

	var shared []string
	for t := range setA {
		if setB[t] {
			shared = append(shared, t)
		}
	}
	sort.Strings(shared)
	return float64(len(shared)) / float64(len(union)), shared
}

func toJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
