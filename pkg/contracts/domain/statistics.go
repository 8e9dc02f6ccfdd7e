package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// NoValue is displayed wherever a statistic is undefined.
const NoValue = "—"

// Measure is a statistic that may be undefined (empty input, n < 2 for deviation).
type Measure struct {
	Value   float64
	Defined bool
}

// Defined wraps a computed value. NaN and infinities are treated as undefined.
func Defined(v float64) Measure {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Measure{}
	}
	return Measure{Value: v, Defined: true}
}

// Undefined is the absent statistic.
func Undefined() Measure {
	return Measure{}
}

// String formats with two decimals.
func (m Measure) String() string {
	if !m.Defined {
		return NoValue
	}
	return strconv.FormatFloat(m.Value, 'f', 2, 64)
}

func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func (m *Measure) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Measure{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("measure: %w", err)
	}
	*m = Defined(v)
	return nil
}

// ModeResult is the most frequent score, or NoUniqueMode when there is none.
type ModeResult struct {
	Value  int
	Unique bool
}

// NoUniqueMode is returned for empty input or when several scores tie.
func NoUniqueMode() ModeResult {
	return ModeResult{}
}

// UniqueMode wraps a single most frequent score.
func UniqueMode(v int) ModeResult {
	return ModeResult{Value: v, Unique: true}
}

func (m ModeResult) String() string {
	if !m.Unique {
		return NoValue
	}
	return strconv.Itoa(m.Value)
}

func (m ModeResult) MarshalJSON() ([]byte, error) {
	if !m.Unique {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func (m *ModeResult) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = NoUniqueMode()
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	*m = UniqueMode(v)
	return nil
}

// StatisticsSummary is the descriptive block shown for the current selection.
type StatisticsSummary struct {
	Mean                 Measure    `json:"mean"`
	StdDev               Measure    `json:"std_dev"`
	Mode                 ModeResult `json:"mode"`
	RecordCount          int        `json:"record_count"`
	DistinctStudentCount int        `json:"distinct_student_count"`
}

// GroupAverage is the mean score of one student or one subject.
type GroupAverage struct {
	Key   string  `json:"key"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// AchievementLevel is the band a score falls into.
type AchievementLevel int

const (
	LevelHigher AchievementLevel = iota
	LevelMain
	LevelSatisfactory
	LevelThreshold
	LevelUnsatisfactory
)

var levelLabels = [...]string{
	LevelHigher:         "Aukštesnysis (9–10)",
	LevelMain:           "Pagrindinis (7–8)",
	LevelSatisfactory:   "Patenkinamas (5–6)",
	LevelThreshold:      "Slenkstinis (4)",
	LevelUnsatisfactory: "Nepatenkinamas (<4)",
}

var levelKeys = [...]string{
	LevelHigher:         "higher",
	LevelMain:           "main",
	LevelSatisfactory:   "satisfactory",
	LevelThreshold:      "threshold",
	LevelUnsatisfactory: "unsatisfactory",
}

// AchievementLevels lists the levels from highest to lowest.
func AchievementLevels() []AchievementLevel {
	return []AchievementLevel{LevelHigher, LevelMain, LevelSatisfactory, LevelThreshold, LevelUnsatisfactory}
}

// Label is the display text, also used as the histogram ordering key.
func (l AchievementLevel) Label() string {
	if l < 0 || int(l) >= len(levelLabels) {
		return ""
	}
	return levelLabels[l]
}

func (l AchievementLevel) String() string {
	if l < 0 || int(l) >= len(levelKeys) {
		return "unknown"
	}
	return levelKeys[l]
}

// LevelCount is one bar of the achievement histogram.
type LevelCount struct {
	Level AchievementLevel `json:"-"`
	Key   string           `json:"key"`
	Label string           `json:"label"`
	Count int              `json:"count"`
}

// RecommendationTier is the narrative band chosen from an average score.
type RecommendationTier int

const (
	TierExcellent RecommendationTier = iota
	TierGood
	TierAverage
	TierWeak
)

var tierTexts = [...]string{
	TierExcellent: "Puikūs rezultatai. Rekomenduojame tęsti tokiu pačiu tempu.",
	TierGood:      "Geri pasiekimai. Galima skirti daugiau dėmesio sunkesniems dalykams.",
	TierAverage:   "Vidutiniai rezultatai. Rekomenduojame papildomas konsultacijas.",
	TierWeak:      "Silpni rezultatai. Būtina stipri pagalba ir dažnesnės konsultacijos.",
}

var tierKeys = [...]string{
	TierExcellent: "excellent",
	TierGood:      "good",
	TierAverage:   "average",
	TierWeak:      "weak",
}

// Text is the recommendation shown to the reader.
func (t RecommendationTier) Text() string {
	if t < 0 || int(t) >= len(tierTexts) {
		return ""
	}
	return tierTexts[t]
}

func (t RecommendationTier) String() string {
	if t < 0 || int(t) >= len(tierKeys) {
		return "unknown"
	}
	return tierKeys[t]
}

func (t RecommendationTier) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tier string `json:"tier"`
		Text string `json:"text"`
	}{t.String(), t.Text()})
}
