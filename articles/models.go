package articles

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

// Statuses an article may have
var Statuses = []string{"draft", "published"}

// Tags is a list of tag names. In documents it is one cell with the names
// joined by "|"; in the database it is a JSON array.
type Tags []string

func (t Tags) MarshalText() ([]byte, error) {
	return []byte(strings.Join(t, "|")), nil
}

// UnmarshalText accepts names separated by "|" or ",".
func (t *Tags) UnmarshalText(text []byte) error {
	fields := strings.FieldsFunc(string(text), func(r rune) bool { return r == '|' || r == ',' })
	tags := make(Tags, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			tags = append(tags, f)
		}
	}
	*t = tags
	return nil
}

// MarshalJSON writes an array, so NDJSON keeps the list shape.
func (t Tags) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

// UnmarshalJSON accepts an array of names or a single delimited string.
func (t *Tags) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return t.UnmarshalText([]byte(s))
	}
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return fmt.Errorf("tags must be an array or a string: %w", err)
	}
	return t.UnmarshalText([]byte(strings.Join(names, "|")))
}

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	return string(b), err
}

func (t *Tags) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("tags: cannot scan %T", src)
	}
	if len(b) == 0 {
		*t = nil
		return nil
	}
	return json.Unmarshal(b, (*[]string)(t))
}

// ArticleModel is both the articles table row and the exchanged record.
type ArticleModel struct {
	ID          string     `gorm:"primaryKey;type:text" json:"id" csv:"name:id;order:0"`
	Slug        string     `gorm:"uniqueIndex;not null" json:"slug" csv:"name:slug;order:1"`
	Title       string     `gorm:"not null" json:"title" csv:"name:title;order:2"`
	Body        string     `gorm:"type:text;not null" json:"body" csv:"name:body;order:3"`
	AuthorID    string     `gorm:"not null;index" json:"author_id" csv:"name:author_id;order:4"`
	Tags        Tags       `gorm:"type:text" json:"tags" csv:"name:tags;order:5"`
	Status      string     `gorm:"not null;default:'draft'" json:"status" csv:"name:status;order:6"`
	PublishedAt *time.Time `json:"published_at,omitempty" csv:"name:published_at;order:7"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at" csv:"name:created_at;order:8;optional"`
}

// CommentModel is both the comments table row and the exchanged record.
type CommentModel struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id" csv:"name:id;order:0"`
	ArticleID string    `gorm:"not null;index" json:"article_id" csv:"name:article_id;order:1"`
	UserID    string    `gorm:"not null;index" json:"user_id" csv:"name:user_id;order:2"`
	Body      string    `gorm:"type:text;not null" json:"body" csv:"name:body;order:3"`
	CreatedAt time.Time `gorm:"not null" json:"created_at" csv:"name:created_at;order:4;optional"`
}

func (ArticleModel) TableName() string {
	return "articles"
}

func (CommentModel) TableName() string {
	return "comments"
}

// AutoMigrate creates the articles and comments tables
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&ArticleModel{}, &CommentModel{}); err != nil {
		return err
	}
	return db.Exec("PRAGMA foreign_keys = ON").Error
}
