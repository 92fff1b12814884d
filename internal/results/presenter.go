package results

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"careTracker/internal/models/task"
	"careTracker/internal/scoring"
)

var ErrNoResultShape = errors.New("results: для типа задачи не настроен вид результатов")
var ErrNoTakeView = errors.New("results: для типа задачи не настроен вид прохождения")

type Kind string

const KindQuestionnaire Kind = "questionnaire"
const KindGame Kind = "game"
const KindChecklist Kind = "checklist"

// TaskResults - данные для экрана результатов: метаданные задачи и итог оценки
type TaskResults struct {
	Task          *task.Task                    `json:"task"`
	Kind          Kind                          `json:"kind"`
	View          string                        `json:"view"`
	StartedAt     time.Time                     `json:"started_at"`
	SubmittedAt   *time.Time                    `json:"submitted_at,omitempty"`
	Score         *float64                      `json:"score,omitempty"`
	Responses     map[string]any                `json:"responses"`
	Questionnaire *scoring.QuestionnaireSummary `json:"questionnaire,omitempty"`
	Game          *scoring.GameSummary          `json:"game,omitempty"`
	Checklist     *scoring.ChecklistRecord      `json:"checklist,omitempty"`
}

// Analysis возвращает краткую оценку для выгрузок
func (r *TaskResults) Analysis() string {
	switch {
	case r.Game != nil:
		return r.Game.Analysis
	case r.Questionnaire != nil:
		return fmt.Sprintf("high concern: %d, moderate concern: %d",
			len(r.Questionnaire.HighConcern), len(r.Questionnaire.ModerateConcern))
	case r.Checklist != nil:
		return fmt.Sprintf("%d/%d items", r.Checklist.CheckedCount(), len(r.Checklist.Items))
	}
	return ""
}

type TakeView struct {
	View   string         `json:"view"`
	Config map[string]any `json:"config,omitempty"`
}

type Presenter struct {
	catalog *scoring.Catalog
}

func NewPresenter(catalog *scoring.Catalog) *Presenter {
	if catalog == nil {
		catalog = scoring.DefaultCatalog()
	}
	return &Presenter{catalog: catalog}
}

func (p *Presenter) Catalog() *scoring.Catalog {
	return p.catalog
}

func kindOf(t task.Type) (Kind, bool) {
	switch t {
	case task.TypeMemoryQuestionnaire:
		return KindQuestionnaire, true
	case task.TypeChecklist:
		return KindChecklist, true
	case task.TypePuzzle, task.TypeColor, task.TypePairs:
		return KindGame, true
	}
	return "", false
}

// Present выбирает оценщик по типу задачи и собирает итог с метаданными задачи
func (p *Presenter) Present(t *task.Task, resp *task.Response) (*TaskResults, error) {
	kind, ok := kindOf(t.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoResultShape, t.Type)
	}
	view, ok := p.catalog.View(string(t.Type))
	if !ok || view.Results == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoResultShape, t.Type)
	}

	out := &TaskResults{
		Task:      t,
		Kind:      kind,
		View:      withDifficulty(view.Results, t.DifficultyString()),
		Responses: map[string]any{},
	}
	if resp != nil {
		out.StartedAt = resp.StartedAt
		out.SubmittedAt = resp.CompletedAt
		out.Score = resp.Score
		if resp.Responses != nil {
			out.Responses = resp.Responses
		}
	}

	switch kind {
	case KindQuestionnaire:
		summary := scoring.ScoreQuestionnaire(scoring.StringAnswers(out.Responses))
		out.Questionnaire = &summary
	case KindChecklist:
		record := scoring.CaptureChecklist(out.Responses)
		out.Checklist = &record
	case KindGame:
		summary, err := p.catalog.ScoreGame(string(t.Type), t.DifficultyString(), out.Responses, t.Config)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoResultShape, err)
		}
		out.Game = &summary
	}
	return out, nil
}

// Score считает числовую оценку при выполнении задачи; у чек-листа оценки нет
func (p *Presenter) Score(t *task.Task, responses map[string]any) (*float64, error) {
	kind, ok := kindOf(t.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoResultShape, t.Type)
	}
	switch kind {
	case KindQuestionnaire:
		score := scoring.ScoreQuestionnaire(scoring.StringAnswers(responses)).OverallScore
		return &score, nil
	case KindGame:
		summary, err := p.catalog.ScoreGame(string(t.Type), t.DifficultyString(), responses, t.Config)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoResultShape, err)
		}
		return &summary.Score, nil
	}
	return nil, nil
}

// TakeView подбирает представление прохождения и настройки уровня сложности.
// Для игр в настройки добавляется контент уровня: пары слов или палитра.
func (p *Presenter) TakeView(t *task.Task) (*TakeView, error) {
	if _, ok := kindOf(t.Type); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTakeView, t.Type)
	}
	view, ok := p.catalog.View(string(t.Type))
	if !ok || view.Take == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoTakeView, t.Type)
	}

	difficulty := t.DifficultyString()
	out := &TakeView{
		View:   withDifficulty(view.Take, difficulty),
		Config: p.catalog.DifficultyConfig(string(t.Type), difficulty),
	}
	if out.Config == nil {
		out.Config = map[string]any{}
	}

	switch t.Type {
	case task.TypePairs:
		out.Config["words"] = p.catalog.PairsFor(difficulty)
	case task.TypeColor:
		out.Config["palette"] = p.catalog.PaletteFor(difficulty)
	case task.TypeMemoryQuestionnaire:
		if questions, ok := t.Config["questions"]; ok {
			out.Config = map[string]any{"questions": questions}
		}
	}
	return out, nil
}

func withDifficulty(view, difficulty string) string {
	if difficulty == "" || !strings.Contains(view, "{difficulty}") {
		return view
	}
	return strings.ReplaceAll(view, "{difficulty}", difficulty)
}
