package scoring

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var catalogYAML []byte

type View struct {
	Take    string `yaml:"take" json:"take"`
	Results string `yaml:"results" json:"results"`
}

type Band struct {
	Min   float64 `yaml:"min" json:"min"`
	Label string  `yaml:"label" json:"label"`
}

type Level struct {
	Config map[string]any `yaml:"config"`
	Bands  []Band         `yaml:"bands"`
}

// Game описывает метрику, по которой выбирается полоса оценки, и настройки уровней
type Game struct {
	Metric string           `yaml:"metric"`
	Levels map[string]Level `yaml:"difficulties"`
}

type Word struct {
	Word     string `yaml:"word" json:"word"`
	Category string `yaml:"category" json:"category"`
}

type WordPair struct {
	Left  string `yaml:"left" json:"left"`
	Right string `yaml:"right" json:"right"`
}

type Catalog struct {
	Views       map[string]View `yaml:"views"`
	Games       map[string]Game `yaml:"games"`
	PuzzleWords []Word          `yaml:"puzzle_words"`
	PairsWords  []WordPair      `yaml:"pairs_words"`
	Colors      []string        `yaml:"colors"`
}

const MetricScore = "score"
const MetricAccuracy = "accuracy"
const MetricEfficiency = "efficiency"

const defaultDifficulty = "mild"

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog возвращает встроенный каталог; ошибка в нём - ошибка сборки
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		c, err := LoadCatalog(catalogYAML)
		if err != nil {
			panic(fmt.Sprintf("scoring: встроенный каталог: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("разбор каталога: %w", err)
	}

	for name, game := range c.Games {
		switch game.Metric {
		case MetricScore, MetricAccuracy, MetricEfficiency:
		default:
			return nil, fmt.Errorf("игра %s: неизвестная метрика %q", name, game.Metric)
		}
		if len(game.Levels) == 0 {
			return nil, fmt.Errorf("игра %s: нет уровней сложности", name)
		}
		for level, cfg := range game.Levels {
			if len(cfg.Bands) == 0 {
				return nil, fmt.Errorf("игра %s/%s: нет порогов оценки", name, level)
			}
			sort.SliceStable(cfg.Bands, func(i, j int) bool { return cfg.Bands[i].Min > cfg.Bands[j].Min })
		}
	}
	return &c, nil
}

func (c *Catalog) View(taskType string) (View, bool) {
	v, ok := c.Views[taskType]
	return v, ok
}

func (c *Catalog) IsGame(taskType string) bool {
	_, ok := c.Games[taskType]
	return ok
}

// level подбирает уровень игры; неизвестная сложность сводится к лёгкой
func (c *Catalog) level(taskType, difficulty string) (Level, string, bool) {
	game, ok := c.Games[taskType]
	if !ok {
		return Level{}, "", false
	}
	difficulty = strings.ToLower(strings.TrimSpace(difficulty))
	if lvl, ok := game.Levels[difficulty]; ok {
		return lvl, difficulty, true
	}
	lvl, ok := game.Levels[defaultDifficulty]
	return lvl, defaultDifficulty, ok
}

// DifficultyConfig возвращает копию настроек уровня; для не-игр nil
func (c *Catalog) DifficultyConfig(taskType, difficulty string) map[string]any {
	lvl, _, ok := c.level(taskType, difficulty)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(lvl.Config))
	for k, v := range lvl.Config {
		out[k] = v
	}
	return out
}

// Analyze выбирает полосу оценки для значения метрики игры
func (c *Catalog) Analyze(taskType, difficulty string, value float64) string {
	lvl, _, ok := c.level(taskType, difficulty)
	if !ok || len(lvl.Bands) == 0 {
		return ""
	}
	for _, b := range lvl.Bands {
		if value >= b.Min {
			return b.Label
		}
	}
	return lvl.Bands[len(lvl.Bands)-1].Label
}

func (c *Catalog) Metric(taskType string) string {
	return c.Games[taskType].Metric
}

// PuzzleReference - эталон для старых ответов головоломки: q1..qN по числу слов уровня
func (c *Catalog) PuzzleReference(difficulty string) map[string]Word {
	count := len(c.PuzzleWords)
	if n, ok := toFloat(c.DifficultyConfig("puzzle", difficulty)["word_count"]); ok && int(n) < count {
		count = int(n)
	}
	ref := make(map[string]Word, count)
	for i := 0; i < count; i++ {
		ref[fmt.Sprintf("q%d", i+1)] = c.PuzzleWords[i]
	}
	return ref
}

// PairsFor возвращает пары слов для уровня игры "пары"
func (c *Catalog) PairsFor(difficulty string) []WordPair {
	count := len(c.PairsWords)
	if n, ok := toFloat(c.DifficultyConfig("pairs", difficulty)["pairs_count"]); ok && int(n) < count {
		count = int(n)
	}
	return append([]WordPair(nil), c.PairsWords[:count]...)
}

// PaletteFor возвращает цвета для уровня цветовой игры
func (c *Catalog) PaletteFor(difficulty string) []string {
	count := len(c.Colors)
	if n, ok := toFloat(c.DifficultyConfig("color", difficulty)["colors"]); ok && int(n) < count {
		count = int(n)
	}
	return append([]string(nil), c.Colors[:count]...)
}
