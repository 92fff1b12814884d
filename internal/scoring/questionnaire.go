package scoring

import (
	"fmt"
	"math"
	"strings"
)

const MemoryIssueCount = 23
const TechniqueCount = 5

const HighConcernScore = 4
const ModerateConcernScore = 2

var MemoryIssues = [MemoryIssueCount]string{
	"Where you put things",
	"Faces",
	"Directions to places",
	"Appointments",
	"Losing the thread of thought in conversations",
	"Remembering things you have done (lock door, turn off the stove, etc.)",
	"Frequently used telephone numbers or addresses",
	"Knowing whether you have already told someone something",
	"Taking your medication at the scheduled time",
	"News items",
	"Date",
	"Personal events from the past",
	"Names of people",
	"Forgetting to take things with you or leaving things behind",
	"Keeping track of all parts of a task as you are performing it",
	"Remembering how to do a familiar task",
	"Repeating something you have already said to someone",
	"Carrying out a recipe",
	"Getting the details of what someone has told you mixed up",
	"Important details of what you did or what happened the day before",
	"Remembering what you just said (What was I just talking about?)",
	"Difficulty retrieving words you want to say (On the tip of the tongue)",
	"Remembering to do something you were supposed to do (phone calls, appointments, etc.)",
}

var FrequencyBuckets = []string{"not_at_all", "occasionally", "frequently", "always"}
var SeriousnessBuckets = []string{"not_serious", "somewhat_serious", "very_serious"}

var frequencyScores = map[string]int{
	"not_at_all":   0,
	"occasionally": 1,
	"frequently":   2,
	"always":       3,
}

var seriousnessScores = map[string]int{
	"not_serious":      0,
	"somewhat_serious": 1,
	"very_serious":     2,
}

type IssueScore struct {
	Number           int    `json:"number"`
	Issue            string `json:"issue"`
	Frequency        string `json:"frequency"`
	FrequencyScore   int    `json:"frequency_score"`
	Seriousness      string `json:"seriousness"`
	SeriousnessScore int    `json:"seriousness_score"`
	CombinedScore    int    `json:"combined_score"`
}

type Bucket struct {
	Key        string  `json:"key"`
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type QuestionnaireSummary struct {
	Issues                  []IssueScore `json:"issues"`
	IssuesCount             int          `json:"issues_count"`
	FrequencyTotal          int          `json:"frequency_total"`
	SeriousnessTotal        int          `json:"seriousness_total"`
	AvgFrequency            float64      `json:"avg_frequency"`
	AvgSeriousness          float64      `json:"avg_seriousness"`
	OverallScore            float64      `json:"overall_score"`
	HighConcern             []IssueScore `json:"high_concern"`
	ModerateConcern         []IssueScore `json:"moderate_concern"`
	FrequencyDistribution   []Bucket     `json:"frequency_distribution"`
	SeriousnessDistribution []Bucket     `json:"seriousness_distribution"`
	Techniques              []string     `json:"techniques"`
}

func FrequencyKey(i int) string   { return fmt.Sprintf("freq_%02d", i) }
func SeriousnessKey(i int) string { return fmt.Sprintf("serious_%02d", i) }
func TechniqueKey(i int) string   { return fmt.Sprintf("technique_%d", i) }

// ScoreQuestionnaire считает итоги опросника о памяти.
// Вопрос учитывается, если заданы оба ответа (частота и серьёзность).
// Нераспознанное значение даёт 0 баллов, но вопрос всё равно засчитывается.
func ScoreQuestionnaire(responses map[string]string) QuestionnaireSummary {
	summary := QuestionnaireSummary{
		Issues:          []IssueScore{},
		HighConcern:     []IssueScore{},
		ModerateConcern: []IssueScore{},
		Techniques:      []string{},
	}
	freqCounts := make(map[string]int, len(FrequencyBuckets))
	seriousCounts := make(map[string]int, len(SeriousnessBuckets))

	for i := 1; i <= MemoryIssueCount; i++ {
		freq := strings.TrimSpace(responses[FrequencyKey(i)])
		serious := strings.TrimSpace(responses[SeriousnessKey(i)])
		if freq == "" || serious == "" {
			continue
		}
		freqScore := frequencyScores[freq]
		seriousScore := seriousnessScores[serious]

		issue := IssueScore{
			Number:           i,
			Issue:            MemoryIssues[i-1],
			Frequency:        label(freq),
			FrequencyScore:   freqScore,
			Seriousness:      label(serious),
			SeriousnessScore: seriousScore,
			CombinedScore:    freqScore + seriousScore,
		}
		summary.Issues = append(summary.Issues, issue)
		summary.IssuesCount++
		summary.FrequencyTotal += freqScore
		summary.SeriousnessTotal += seriousScore
		freqCounts[freq]++
		seriousCounts[serious]++

		switch {
		case issue.CombinedScore >= HighConcernScore:
			summary.HighConcern = append(summary.HighConcern, issue)
		case issue.CombinedScore >= ModerateConcernScore:
			summary.ModerateConcern = append(summary.ModerateConcern, issue)
		}
	}

	if summary.IssuesCount > 0 {
		n := float64(summary.IssuesCount)
		summary.AvgFrequency = round(float64(summary.FrequencyTotal)/n, 2)
		summary.AvgSeriousness = round(float64(summary.SeriousnessTotal)/n, 2)
	}
	summary.OverallScore = round(summary.AvgFrequency+summary.AvgSeriousness, 2)

	summary.FrequencyDistribution = distribution(FrequencyBuckets, freqCounts, summary.IssuesCount)
	summary.SeriousnessDistribution = distribution(SeriousnessBuckets, seriousCounts, summary.IssuesCount)

	for i := 1; i <= TechniqueCount; i++ {
		if technique := strings.TrimSpace(responses[TechniqueKey(i)]); technique != "" {
			summary.Techniques = append(summary.Techniques, technique)
		}
	}
	return summary
}

func distribution(keys []string, counts map[string]int, total int) []Bucket {
	buckets := make([]Bucket, 0, len(keys))
	for _, key := range keys {
		b := Bucket{Key: key, Label: label(key), Count: counts[key]}
		if total > 0 {
			b.Percentage = round(float64(b.Count)/float64(total)*100, 1)
		}
		buckets = append(buckets, b)
	}
	return buckets
}

// StringAnswers оставляет в карте ответов только строковые значения
func StringAnswers(responses map[string]any) map[string]string {
	out := make(map[string]string, len(responses))
	for k, v := range responses {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// label: "not_at_all" -> "Not At All"
func label(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
