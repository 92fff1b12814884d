package scoring

import (
	"fmt"
	"strings"
)

// ChecklistItems - номера пунктов чек-листа (пункт 4 выведен из формы)
var ChecklistItems = []int{1, 2, 3, 5, 6, 7}

type ChecklistItem struct {
	Number  int  `json:"number"`
	Checked bool `json:"checked"`
}

type ChecklistRecord struct {
	Items       []ChecklistItem `json:"items"`
	Mood        string          `json:"mood"`
	MemoryEntry string          `json:"memory_entry"`
}

func ChecklistItemKey(n int) string { return fmt.Sprintf("item_%d", n) }

// CaptureChecklist только фиксирует ответы чек-листа, оценка не считается.
// Пункт отмечен, если пришло true, "on", "true" или "1".
func CaptureChecklist(responses map[string]any) ChecklistRecord {
	record := ChecklistRecord{Items: make([]ChecklistItem, 0, len(ChecklistItems))}
	for _, n := range ChecklistItems {
		record.Items = append(record.Items, ChecklistItem{
			Number:  n,
			Checked: checked(responses[ChecklistItemKey(n)]),
		})
	}
	if mood, ok := responses["mood"].(string); ok {
		record.Mood = strings.TrimSpace(mood)
	}
	if entry, ok := responses["memory_entry"].(string); ok {
		record.MemoryEntry = strings.TrimSpace(entry)
	}
	return record
}

// ToMap возвращает запись в виде, в котором она хранится
func (r ChecklistRecord) ToMap() map[string]any {
	out := make(map[string]any, len(r.Items)+2)
	for _, item := range r.Items {
		out[ChecklistItemKey(item.Number)] = item.Checked
	}
	out["mood"] = r.Mood
	out["memory_entry"] = r.MemoryEntry
	return out
}

func (r ChecklistRecord) CheckedCount() int {
	count := 0
	for _, item := range r.Items {
		if item.Checked {
			count++
		}
	}
	return count
}

func checked(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "on", "true", "1":
			return true
		}
	case float64:
		return val == 1
	}
	return false
}
