package models

import (
	"fmt"
	"time"

	"lifelog/internal/domain"
)

// CardType tags the four card variants. The type of a card is fixed at
// creation and never changes.
type CardType string

const (
	CardText     CardType = "text"
	CardSchedule CardType = "schedule"
	CardVideo    CardType = "video"
	CardTodo     CardType = "todo"
)

// TodoItem is one line of a todo card. Order within the card is significant:
// item flags are addressed positionally, and the edit-merge path matches
// lines against prior items by exact text.
type TodoItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Variant payloads. Exactly one of these is non-nil on a card, matching its
// type tag; the flat type-tagged remote document shape exists only at the
// store boundary (CardDoc / CardFromDoc).
type (
	TextFields struct {
		ImageURL string `json:"image_url,omitempty"`
		Content  string `json:"content,omitempty"`
	}

	ScheduleFields struct {
		Date    string `json:"date"` // datetime-local string, required
		Content string `json:"content,omitempty"`
	}

	VideoFields struct {
		VideoURL string `json:"video_url"` // required
	}

	TodoFields struct {
		Items []TodoItem `json:"items"`
	}
)

type Card struct {
	ID          string    `json:"id"`
	Type        CardType  `json:"type"`
	CategoryID  *string   `json:"category_id"` // nil = uncategorized
	Title       string    `json:"title"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`

	Text     *TextFields     `json:"text,omitempty"`
	Schedule *ScheduleFields `json:"schedule,omitempty"`
	Video    *VideoFields    `json:"video,omitempty"`
	Todo     *TodoFields     `json:"todo,omitempty"`
}

// Content returns the free-text body of the card, if its variant has one.
// Used by the search predicate; variants without content return "".
func (c *Card) Content() string {
	switch {
	case c.Text != nil:
		return c.Text.Content
	case c.Schedule != nil:
		return c.Schedule.Content
	}
	return ""
}

// TodoItems returns the card's items, or nil for non-todo cards.
func (c *Card) TodoItems() []TodoItem {
	if c.Todo == nil {
		return nil
	}
	return c.Todo.Items
}

// CreateCardRequest carries the flat card form. Fields outside the variant
// of Type are pruned during normalization, not rejected.
type CreateCardRequest struct {
	Type       CardType `json:"type"`
	CategoryID *string  `json:"category_id,omitempty"`
	Title      string   `json:"title"`
	ImageURL   string   `json:"image_url,omitempty"`
	Content    string   `json:"content,omitempty"`
	Date       string   `json:"date,omitempty"`
	VideoURL   string   `json:"video_url,omitempty"`
	TodoText   string   `json:"todo_text,omitempty"` // newline-delimited items
}

// UpdateCardRequest carries a partial edit. Absent fields are preserved;
// CategoryID distinguishes absent from explicit null. TodoText, when
// present, re-derives the item list with the done-flag merge.
type UpdateCardRequest struct {
	Title      *string        `json:"title,omitempty"`
	CategoryID OptionalString `json:"category_id,omitzero"`
	ImageURL   *string        `json:"image_url,omitempty"`
	Content    *string        `json:"content,omitempty"`
	Date       *string        `json:"date,omitempty"`
	VideoURL   *string        `json:"video_url,omitempty"`
	TodoText   *string        `json:"todo_text,omitempty"`
}

// CardDoc flattens a card into the remote document shape: a type-tagged flat
// map carrying only the fields of the card's variant.
func (c *Card) CardDoc() map[string]any {
	var category any
	if c.CategoryID != nil {
		category = *c.CategoryID
	}
	doc := map[string]any{
		"type":        string(c.Type),
		"categoryId":  category,
		"title":       c.Title,
		"isCompleted": c.IsCompleted,
	}
	switch {
	case c.Text != nil:
		if c.Text.ImageURL != "" {
			doc["imageUrl"] = c.Text.ImageURL
		}
		if c.Text.Content != "" {
			doc["content"] = c.Text.Content
		}
	case c.Schedule != nil:
		doc["date"] = c.Schedule.Date
		if c.Schedule.Content != "" {
			doc["content"] = c.Schedule.Content
		}
	case c.Video != nil:
		doc["videoUrl"] = c.Video.VideoURL
	case c.Todo != nil:
		items := make([]any, len(c.Todo.Items))
		for i, item := range c.Todo.Items {
			items[i] = map[string]any{"text": item.Text, "done": item.Done}
		}
		doc["todoItems"] = items
	}
	return doc
}

// CardFromDoc rebuilds a card from a remote document. The type tag selects
// which variant payload is decoded; fields from other variants are dropped.
// An unknown type tag is an error so the reconciler can skip the document.
func CardFromDoc(id string, data map[string]any, createdAt time.Time) (Card, error) {
	c := Card{ID: id, CreatedAt: createdAt}
	typ, _ := data["type"].(string)
	if title, ok := data["title"].(string); ok {
		c.Title = title
	}
	if category, ok := data["categoryId"].(string); ok && category != "" {
		c.CategoryID = &category
	}
	if done, ok := data["isCompleted"].(bool); ok {
		c.IsCompleted = done
	}

	str := func(key string) string {
		s, _ := data[key].(string)
		return s
	}

	switch CardType(typ) {
	case CardText:
		c.Type = CardText
		c.Text = &TextFields{ImageURL: str("imageUrl"), Content: str("content")}
	case CardSchedule:
		c.Type = CardSchedule
		c.Schedule = &ScheduleFields{Date: str("date"), Content: str("content")}
	case CardVideo:
		c.Type = CardVideo
		c.Video = &VideoFields{VideoURL: str("videoUrl")}
	case CardTodo:
		c.Type = CardTodo
		c.Todo = &TodoFields{Items: todoItemsFromDoc(data["todoItems"])}
	default:
		return Card{}, fmt.Errorf("card %s: unknown type %q: %w", id, typ, domain.ErrValidation)
	}
	return c, nil
}

func todoItemsFromDoc(raw any) []TodoItem {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	items := make([]TodoItem, 0, len(entries))
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := TodoItem{}
		item.Text, _ = m["text"].(string)
		item.Done, _ = m["done"].(bool)
		items = append(items, item)
	}
	return items
}
