package categories

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/sahilm/fuzzy"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const (
	// DefaultFoodCategory is used when no food preference is given.
	DefaultFoodCategory = "catering.restaurant"

	keyScoreThreshold = 0.3
	minKeyTermLength  = 3
	minValueTermLen   = 2
)

// DefaultAttractionCategories are used when no interest is given.
var DefaultAttractionCategories = []string{"tourism", "entertainment"}

// Unmapped lists the preference terms that matched no category.
type Unmapped struct {
	Food      []string `json:"food"`
	Interests []string `json:"interests"`
}

// Mappings is the category query for a trip.
type Mappings struct {
	FoodCategories       string   `json:"foodCategories"`
	AttractionCategories string   `json:"attractionCategories"`
	Unmapped             Unmapped `json:"unmapped"`
}

// Mapper translates free-text preferences into taxonomy paths.
type Mapper struct {
	food        *taxonomy
	attractions *taxonomy
}

// NewMapper builds a mapper over the bundled food and attraction taxonomies.
func NewMapper() (*Mapper, error) {
	food, err := loadEmbedded("food.json")
	if err != nil {
		return nil, err
	}
	attractions, err := loadEmbedded("attractions.json")
	if err != nil {
		return nil, err
	}
	return &Mapper{food: food, attractions: attractions}, nil
}

// NewMapperFromJSON builds a mapper over caller-supplied taxonomies.
func NewMapperFromJSON(food, attractions []byte) (*Mapper, error) {
	f, err := parseTaxonomy(food)
	if err != nil {
		return nil, fmt.Errorf("food taxonomy: %w", err)
	}
	a, err := parseTaxonomy(attractions)
	if err != nil {
		return nil, fmt.Errorf("attraction taxonomy: %w", err)
	}
	return &Mapper{food: f, attractions: a}, nil
}

// MatchFood returns the food category paths for one term.
func (m *Mapper) MatchFood(term string) []string {
	return m.food.match(term)
}

// MatchAttraction returns the attraction category paths for one term.
func (m *Mapper) MatchAttraction(term string) []string {
	return m.attractions.match(term)
}

// GetCategoryMappings maps the trip's preferences. Terms that match nothing
// are reported in Unmapped.
func (m *Mapper) GetCategoryMappings(trip types.TripData) Mappings {
	out := Mappings{Unmapped: Unmapped{Food: []string{}, Interests: []string{}}}

	food := trip.AllFoodPreferences()
	if len(food) == 0 {
		out.FoodCategories = DefaultFoodCategory
	} else {
		var unmapped []string
		out.FoodCategories, unmapped = mapTerms(m.food, food)
		out.Unmapped.Food = append(out.Unmapped.Food, unmapped...)
	}

	interests := trip.AllInterests()
	if len(interests) == 0 {
		out.AttractionCategories = strings.Join(DefaultAttractionCategories, ",")
	} else {
		var unmapped []string
		out.AttractionCategories, unmapped = mapTerms(m.attractions, interests)
		out.Unmapped.Interests = append(out.Unmapped.Interests, unmapped...)
	}
	return out
}

func mapTerms(t *taxonomy, terms []string) (string, []string) {
	var (
		paths    []string
		seen     = make(map[string]struct{})
		unmapped []string
	)
	for _, term := range terms {
		matches := t.match(term)
		if len(matches) == 0 {
			unmapped = append(unmapped, term)
			continue
		}
		for _, p := range matches {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}
	return strings.Join(paths, ","), unmapped
}

// match tries, in order: an exact key (literal, then stemmed), the closest
// key by normalised edit distance, and finally every leaf whose values
// contain the term or its stem.
func (t *taxonomy) match(term string) []string {
	lower := strings.ToLower(strings.TrimSpace(term))
	if lower == "" {
		return nil
	}
	stemmed := Stem(lower)
	if stemmed == "" {
		stemmed = lower
	}

	for _, k := range t.keys {
		if strings.ToLower(k.Key) == lower {
			return []string{k.Path}
		}
	}
	for _, k := range t.keys {
		if Stem(k.Key) == stemmed {
			return []string{k.Path}
		}
	}

	if len(lower) >= minKeyTermLength {
		best, bestScore := -1, keyScoreThreshold
		for i, k := range t.keys {
			if score := keyScore(lower, strings.ToLower(k.Key)); score < bestScore {
				best, bestScore = i, score
			}
		}
		if best >= 0 {
			return []string{t.keys[best].Path}
		}
	}

	if len(lower) < minValueTermLen {
		return nil
	}
	return t.matchValues(lower, stemmed)
}

func keyScore(term, key string) float64 {
	longest := max(len(term), len(key))
	if longest == 0 {
		return 1
	}
	return float64(levenshtein.ComputeDistance(term, key)) / float64(longest)
}

func (t *taxonomy) matchValues(lower, stemmed string) []string {
	var paths []string
	seen := make(map[int]struct{})
	for _, pattern := range []string{lower, stemmed} {
		for _, hit := range fuzzy.Find(pattern, t.values) {
			leaf := t.owner[hit.Index]
			if _, ok := seen[leaf]; ok {
				continue
			}
			if !t.leaves[leaf].contains(lower, stemmed) {
				continue
			}
			seen[leaf] = struct{}{}
			paths = append(paths, t.leaves[leaf].Path)
		}
	}
	return paths
}

func (l leafItem) contains(lower, stemmed string) bool {
	for _, v := range l.Values {
		v = strings.ToLower(v)
		if strings.Contains(v, lower) || strings.Contains(v, stemmed) || strings.Contains(Stem(v), stemmed) {
			return true
		}
	}
	return false
}
