// Package outline reconstructs a document outline (title, H1-H3 headings and
// the sections between them) from a flat stream of positioned text fragments.
//
// Every decision is a pure function of font size, font name, surface text
// patterns and stream order. There is no learned model and no state shared
// between documents, so callers may run Build concurrently on different
// documents.
package outline

// Params holds the tunable thresholds of the heuristics. The zero value is
// not useful; start from DefaultParams and override fields.
type Params struct {
	// ScoreThreshold is the minimum score for a fragment to become a
	// heading candidate.
	// Default: 4
	ScoreThreshold int `yaml:"score_threshold"`

	// SizeDelta is how many points a fragment must exceed the body size by
	// (strictly) to earn SizeWeight.
	// Default: 1
	SizeDelta float64 `yaml:"size_delta"`

	// BodySizeCutoff restricts body-size estimation to fragments strictly
	// smaller than this, unless none are.
	// Default: 20
	BodySizeCutoff float64 `yaml:"body_size_cutoff"`

	// DefaultBodySize is the body size reported for an empty document.
	// Default: 12
	DefaultBodySize float64 `yaml:"default_body_size"`

	// MaxLevels is the number of distinct candidate sizes mapped to levels.
	// Values outside 1..3 are clamped.
	// Default: 3
	MaxLevels int `yaml:"max_levels"`

	// MaxWords: fragments with fewer words than this earn ShortWeight.
	// Default: 15
	MaxWords int `yaml:"max_words"`

	// UpperMinLen: all-caps fragments longer than this earn UpperWeight.
	// Default: 2
	UpperMinLen int `yaml:"upper_min_len"`

	// BoldMarker is matched case-insensitively against the font name.
	// Default: "bold"
	BoldMarker string `yaml:"bold_marker"`

	// Score weights.
	// Defaults: size 2, bold 1, numbered 5, short 1, upper 1
	SizeWeight     int `yaml:"size_weight"`
	BoldWeight     int `yaml:"bold_weight"`
	NumberedWeight int `yaml:"numbered_weight"`
	ShortWeight    int `yaml:"short_weight"`
	UpperWeight    int `yaml:"upper_weight"`

	// UntitledTitle is used when the first page has no fragments.
	// Default: "Untitled"
	UntitledTitle string `yaml:"untitled_title"`
}

// DefaultParams returns the reference heuristics.
func DefaultParams() Params {
	return Params{
		ScoreThreshold:  4,
		SizeDelta:       1,
		BodySizeCutoff:  20,
		DefaultBodySize: 12,
		MaxLevels:       3,
		MaxWords:        15,
		UpperMinLen:     2,
		BoldMarker:      "bold",
		SizeWeight:      2,
		BoldWeight:      1,
		NumberedWeight:  5,
		ShortWeight:     1,
		UpperWeight:     1,
		UntitledTitle:   "Untitled",
	}
}

func (p Params) maxLevels() int {
	switch {
	case p.MaxLevels < 1:
		return 1
	case p.MaxLevels > 3:
		return 3
	}
	return p.MaxLevels
}
