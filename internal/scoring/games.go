package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var ErrUnknownTaskType = errors.New("scoring: неизвестный тип задачи")

var answerKey = regexp.MustCompile(`^q(\d+)$`)

// GameSubmission - разобранный результат игры от клиента. Значениям клиента
// доверяем и не сверяем их между собой.
type GameSubmission struct {
	Score       float64           `json:"score"`
	Total       float64           `json:"total"`
	Moves       float64           `json:"moves"`
	TimeSeconds float64           `json:"time"`
	Difficulty  string            `json:"difficulty"`
	Answers     map[string]string `json:"answers,omitempty"`
}

type PuzzleItem struct {
	Key      string `json:"key"`
	Word     string `json:"word"`
	Category string `json:"category"`
	Answer   string `json:"answer"`
	Correct  bool   `json:"correct"`
}

type GameSummary struct {
	TaskType     string       `json:"task_type"`
	Difficulty   string       `json:"difficulty"`
	Score        float64      `json:"score"`
	Total        float64      `json:"total"`
	Moves        float64      `json:"moves"`
	TimeSeconds  int          `json:"time_seconds"`
	TimeDisplay  string       `json:"time_display"`
	Efficiency   float64      `json:"efficiency"`
	Accuracy     float64      `json:"accuracy"`
	Metric       string       `json:"metric"`
	Analysis     string       `json:"analysis"`
	Items        []PuzzleItem `json:"items,omitempty"`
	CorrectCount int          `json:"correct_count"`
}

// ParseGameSubmission приводит карту от клиента к типизированной структуре.
// Число попыток может прийти как moves, tries или attempts; время как time,
// time_seconds или seconds.
func ParseGameSubmission(responses map[string]any) GameSubmission {
	sub := GameSubmission{Answers: map[string]string{}}
	sub.Score, _ = firstNumber(responses, "score")
	sub.Total, _ = firstNumber(responses, "total", "pairs", "items")
	sub.Moves, _ = firstNumber(responses, "moves", "tries", "attempts")
	sub.TimeSeconds, _ = firstNumber(responses, "time", "time_seconds", "seconds")
	if d, ok := responses["difficulty"].(string); ok {
		sub.Difficulty = strings.ToLower(strings.TrimSpace(d))
	}

	if nested, ok := responses["answers"].(map[string]any); ok {
		for k, v := range nested {
			if s, ok := v.(string); ok {
				sub.Answers[k] = s
			}
		}
	}
	for k, v := range responses {
		if !answerKey.MatchString(k) {
			continue
		}
		if s, ok := v.(string); ok {
			sub.Answers[k] = s
		}
	}
	return sub
}

// ScoreGame считает итог игры по встроенному каталогу; сложность берётся из ответа
func ScoreGame(taskType string, responses map[string]any) (GameSummary, error) {
	sub := ParseGameSubmission(responses)
	return DefaultCatalog().ScoreGame(taskType, sub.Difficulty, responses, nil)
}

// ScoreGame считает итог игры. Сложность задачи важнее сложности из ответа клиента.
// cfg - task_config задачи; из него берутся слова головоломки, если они заданы.
func (c *Catalog) ScoreGame(taskType, difficulty string, responses map[string]any, cfg map[string]any) (GameSummary, error) {
	if !c.IsGame(taskType) {
		return GameSummary{}, fmt.Errorf("%w: %s", ErrUnknownTaskType, taskType)
	}

	sub := ParseGameSubmission(responses)
	if difficulty == "" {
		difficulty = sub.Difficulty
	}
	_, level, _ := c.level(taskType, difficulty)

	summary := GameSummary{
		TaskType:    taskType,
		Difficulty:  level,
		Score:       sub.Score,
		Total:       sub.Total,
		Moves:       sub.Moves,
		TimeSeconds: int(sub.TimeSeconds + 0.5),
		Metric:      c.Metric(taskType),
	}
	if summary.TimeSeconds < 0 {
		summary.TimeSeconds = 0
	}
	summary.TimeDisplay = FormatDuration(summary.TimeSeconds)

	items, tries := sub.Score, sub.Moves
	if taskType == "pairs" {
		// найденные пары: total/pairs от клиента, иначе pairs_count уровня
		items = sub.Total
		if items == 0 {
			if n, ok := toFloat(c.DifficultyConfig(taskType, level)["pairs_count"]); ok {
				items = n
			}
		}
		if items == 0 {
			items = sub.Score
		}
		if summary.Total == 0 {
			summary.Total = items
		}
		if summary.Score == 0 {
			summary.Score = items
		}
	}
	if taskType == "puzzle" && len(sub.Answers) > 0 {
		ref := puzzleReference(cfg)
		if len(ref) == 0 {
			ref = c.PuzzleReference(level)
		}
		summary.Items, summary.CorrectCount = CheckPuzzleAnswers(sub.Answers, ref)

		answered := 0
		for _, item := range summary.Items {
			if strings.TrimSpace(item.Answer) != "" {
				answered++
			}
		}
		items, tries = float64(summary.CorrectCount), float64(answered)
		if summary.Score == 0 {
			summary.Score = float64(summary.CorrectCount)
		}
		if summary.Total == 0 {
			summary.Total = float64(len(ref))
		}
	}

	summary.Efficiency = Efficiency(items, tries)
	if summary.Total > 0 {
		summary.Accuracy = round(summary.Score/summary.Total*100, 1)
	}

	var value float64
	switch summary.Metric {
	case MetricAccuracy:
		value = summary.Accuracy
	case MetricEfficiency:
		value = summary.Efficiency
	default:
		value = summary.Score
	}
	summary.Analysis = c.Analyze(taskType, level, value)
	return summary, nil
}

// CheckPuzzleAnswers сверяет ответы с эталонными категориями без учёта регистра и пробелов.
// Пункты идут в порядке номеров вопросов.
func CheckPuzzleAnswers(answers map[string]string, ref map[string]Word) ([]PuzzleItem, int) {
	keys := make([]string, 0, len(ref))
	for k := range ref {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return questionNumber(keys[i]) < questionNumber(keys[j]) })

	items := make([]PuzzleItem, 0, len(keys))
	correct := 0
	for _, k := range keys {
		word := ref[k]
		answer := strings.TrimSpace(answers[k])
		item := PuzzleItem{
			Key:      k,
			Word:     word.Word,
			Category: word.Category,
			Answer:   answer,
			Correct:  answer != "" && strings.EqualFold(answer, strings.TrimSpace(word.Category)),
		}
		if item.Correct {
			correct++
		}
		items = append(items, item)
	}
	return items, correct
}

// Efficiency = items / tries * 100 с округлением до десятых; 0 при нулевом знаменателе
func Efficiency(items, tries float64) float64 {
	if tries <= 0 {
		return 0
	}
	return round(items/tries*100, 1)
}

// FormatDuration: секунды -> "mm:ss"
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// puzzleReference читает слова головоломки из task_config:
// список [{word, category}] или карту {q1: {word, category}}
func puzzleReference(cfg map[string]any) map[string]Word {
	raw, ok := cfg["words"]
	if !ok {
		return nil
	}
	ref := map[string]Word{}
	switch words := raw.(type) {
	case []any:
		for i, w := range words {
			if word, ok := toWord(w); ok {
				ref[fmt.Sprintf("q%d", i+1)] = word
			}
		}
	case map[string]any:
		for k, w := range words {
			if word, ok := toWord(w); ok {
				ref[k] = word
			}
		}
	}
	return ref
}

func toWord(v any) (Word, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Word{}, false
	}
	word, _ := m["word"].(string)
	category, _ := m["category"].(string)
	if category == "" {
		return Word{}, false
	}
	return Word{Word: word, Category: category}, true
}

func questionNumber(key string) int {
	m := answerKey.FindStringSubmatch(key)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func firstNumber(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := toFloat(m[k]); ok {
			return v, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
