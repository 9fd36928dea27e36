package articles

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"csv-exchange/common"
)

// MaxCommentWords is the longest comment body accepted.
const MaxCommentWords = 500

// ArticleValidator validates article records for bulk import
type ArticleValidator struct {
	slugOwners     map[string]string // slug -> article id
	validAuthorIDs map[string]bool
	batchSlugs     map[string]int // slug -> first row in this import
}

// CommentValidator validates comment records for bulk import
type CommentValidator struct {
	validArticleIDs map[string]bool
	validUserIDs    map[string]bool
	batchIDs        map[string]int
}

// NewArticleValidator creates a validator with pre-loaded existing data
func NewArticleValidator(db *gorm.DB) *ArticleValidator {
	v := &ArticleValidator{
		slugOwners:     make(map[string]string),
		validAuthorIDs: make(map[string]bool),
		batchSlugs:     make(map[string]int),
	}

	var articles []ArticleModel
	db.Select("id", "slug").Find(&articles)
	for _, a := range articles {
		v.slugOwners[a.Slug] = a.ID
	}

	var userIDs []string
	db.Table("users").Pluck("id", &userIDs)
	for _, id := range userIDs {
		v.validAuthorIDs[id] = true
	}
	return v
}

// EffectiveSlug is the slug an article is stored under: its own, or one
// derived from the title.
func EffectiveSlug(a *ArticleModel) string {
	if s := strings.TrimSpace(a.Slug); s != "" {
		return s
	}
	return slug.Make(a.Title)
}

// Validate checks a decoded article. Slug is the natural key.
func (v *ArticleValidator) Validate(a *ArticleModel, rowNum int) *common.RecordValidationResult {
	result := common.NewResult(rowNum, a.ID)

	if id := strings.TrimSpace(a.ID); id != "" {
		if _, err := uuid.Parse(id); err != nil {
			result.AddError("id", "Invalid UUID format")
		}
	}

	s := EffectiveSlug(a)
	switch {
	case s == "":
		result.AddError("slug", "Slug is required when the title is empty")
	case !common.ValidateKebabCase(s):
		result.AddError("slug", "Slug must be in kebab-case format (lowercase, hyphen-separated)")
	default:
		if first, ok := v.batchSlugs[s]; ok {
			result.AddError("slug", fmt.Sprintf("Duplicate slug in import (first seen at row %d)", first))
		} else if owner, ok := v.slugOwners[s]; ok && a.ID != "" && owner != a.ID {
			result.AddError("slug", "Slug belongs to another article")
		}
	}

	if err := common.ValidateRequired("title", a.Title); err != nil {
		result.AddError(err.Field, err.Message)
	}
	if err := common.ValidateRequired("body", a.Body); err != nil {
		result.AddError(err.Field, err.Message)
	}

	switch authorID := strings.TrimSpace(a.AuthorID); {
	case authorID == "":
		result.AddError("author_id", "Author ID is required")
	case uuid.Validate(authorID) != nil:
		result.AddError("author_id", "Invalid author ID UUID format")
	case !v.validAuthorIDs[authorID]:
		result.AddError("author_id", "Author ID does not exist in users table")
	}

	status := strings.ToLower(strings.TrimSpace(a.Status))
	if status == "" {
		status = "draft"
	}
	if err := common.ValidateEnum("status", status, Statuses); err != nil {
		result.AddError(err.Field, err.Message)
	}
	if status == "published" && a.PublishedAt == nil {
		result.AddError("published_at", "Published articles must have published_at timestamp")
	}
	if status == "draft" && a.PublishedAt != nil {
		result.AddError("published_at", "Draft articles must not have published_at timestamp")
	}

	if result.Valid {
		v.batchSlugs[s] = rowNum
	}
	return result
}

// NormalizeArticle fills defaults: generated id, derived slug, draft status
// and creation time.
func NormalizeArticle(a *ArticleModel) {
	a.ID = strings.TrimSpace(a.ID)
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.Slug = EffectiveSlug(a)
	a.AuthorID = strings.TrimSpace(a.AuthorID)
	a.Status = strings.ToLower(strings.TrimSpace(a.Status))
	if a.Status == "" {
		a.Status = "draft"
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
}

// UpsertArticles writes articles, updating existing rows by slug.
func UpsertArticles(db *gorm.DB, articles []ArticleModel) error {
	if len(articles) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "body", "author_id", "tags", "status", "published_at"}),
	}).Create(&articles).Error
}

// QueryArticles returns the articles query for export filters: status and
// author_id.
func QueryArticles(db *gorm.DB, filters map[string]string) *gorm.DB {
	q := db.Model(&ArticleModel{}).Order("created_at, id")
	if status, ok := filters["status"]; ok {
		q = q.Where("status = ?", status)
	}
	if author, ok := filters["author_id"]; ok {
		q = q.Where("author_id = ?", author)
	}
	return q
}

// NewCommentValidator creates a validator with pre-loaded existing data
func NewCommentValidator(db *gorm.DB) *CommentValidator {
	v := &CommentValidator{
		validArticleIDs: make(map[string]bool),
		validUserIDs:    make(map[string]bool),
		batchIDs:        make(map[string]int),
	}

	var articleIDs []string
	db.Table("articles").Pluck("id", &articleIDs)
	for _, id := range articleIDs {
		v.validArticleIDs[id] = true
	}

	var userIDs []string
	db.Table("users").Pluck("id", &userIDs)
	for _, id := range userIDs {
		v.validUserIDs[id] = true
	}
	return v
}

// Validate checks a decoded comment. Comments have no natural key, so the id
// is required.
func (v *CommentValidator) Validate(c *CommentModel, rowNum int) *common.RecordValidationResult {
	result := common.NewResult(rowNum, c.ID)

	switch id := strings.TrimSpace(c.ID); {
	case id == "":
		result.AddError("id", "ID is required for comments (no natural key available)")
	case uuid.Validate(id) != nil:
		result.AddError("id", "Invalid UUID format")
	default:
		if first, ok := v.batchIDs[id]; ok {
			result.AddError("id", fmt.Sprintf("Duplicate id in import (first seen at row %d)", first))
		}
	}

	checkRef := func(field, value string, known map[string]bool, table string) {
		switch value = strings.TrimSpace(value); {
		case value == "":
			result.AddError(field, field+" is required")
		case uuid.Validate(value) != nil:
			result.AddError(field, "Invalid "+field+" UUID format")
		case !known[value]:
			result.AddError(field, fmt.Sprintf("%s does not exist in %s table", field, table))
		}
	}
	checkRef("article_id", c.ArticleID, v.validArticleIDs, "articles")
	checkRef("user_id", c.UserID, v.validUserIDs, "users")

	if err := common.ValidateRequired("body", c.Body); err != nil {
		result.AddError(err.Field, err.Message)
	} else if n := common.CountWords(c.Body); n > MaxCommentWords {
		result.AddError("body", fmt.Sprintf("Body exceeds %d words limit (has %d words)", MaxCommentWords, n))
	}

	if result.Valid {
		v.batchIDs[strings.TrimSpace(c.ID)] = rowNum
	}
	return result
}

// NormalizeComment trims references and sets the creation time.
func NormalizeComment(c *CommentModel) {
	c.ID = strings.TrimSpace(c.ID)
	c.ArticleID = strings.TrimSpace(c.ArticleID)
	c.UserID = strings.TrimSpace(c.UserID)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
}

// UpsertComments writes comments, updating existing rows by id.
func UpsertComments(db *gorm.DB, comments []CommentModel) error {
	if len(comments) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"article_id", "user_id", "body", "created_at"}),
	}).Create(&comments).Error
}

// QueryComments returns the comments query for export filters: article_id
// and user_id.
func QueryComments(db *gorm.DB, filters map[string]string) *gorm.DB {
	q := db.Model(&CommentModel{}).Order("created_at, id")
	if article, ok := filters["article_id"]; ok {
		q = q.Where("article_id = ?", article)
	}
	if user, ok := filters["user_id"]; ok {
		q = q.Where("user_id = ?", user)
	}
	return q
}

// DeleteOrphans removes rows of resource whose references no longer
// resolve and reports each one.
func DeleteOrphans(db *gorm.DB, resource string) ([]common.RecordValidationResult, error) {
	var results []common.RecordValidationResult

	switch resource {
	case "articles":
		var orphans []ArticleModel
		err := db.Raw(`
			SELECT a.id, a.author_id
			FROM articles a
			LEFT JOIN users u ON a.author_id = u.id
			WHERE u.id IS NULL
		`).Scan(&orphans).Error
		if err != nil {
			return nil, err
		}
		for _, a := range orphans {
			if err := db.Delete(&ArticleModel{}, "id = ?", a.ID).Error; err != nil {
				return results, err
			}
			result := common.RecordValidationResult{RecordID: a.ID}
			result.AddError("author_id", fmt.Sprintf("Foreign key violation: author_id '%s' does not exist", a.AuthorID))
			results = append(results, result)
		}

	case "comments":
		var orphans []struct {
			ID        string
			ArticleID string
			UserID    string
			ArticleOK bool `gorm:"column:article_ok"`
			UserOK    bool `gorm:"column:user_ok"`
		}
		err := db.Raw(`
			SELECT c.id, c.article_id, c.user_id,
				a.id IS NOT NULL AS article_ok,
				u.id IS NOT NULL AS user_ok
			FROM comments c
			LEFT JOIN articles a ON c.article_id = a.id
			LEFT JOIN users u ON c.user_id = u.id
			WHERE a.id IS NULL OR u.id IS NULL
		`).Scan(&orphans).Error
		if err != nil {
			return nil, err
		}
		for _, c := range orphans {
			if err := db.Delete(&CommentModel{}, "id = ?", c.ID).Error; err != nil {
				return results, err
			}
			result := common.RecordValidationResult{RecordID: c.ID}
			if !c.ArticleOK {
				result.AddError("article_id", fmt.Sprintf("Foreign key violation: article_id '%s' does not exist", c.ArticleID))
			}
			if !c.UserOK {
				result.AddError("user_id", fmt.Sprintf("Foreign key violation: user_id '%s' does not exist", c.UserID))
			}
			results = append(results, result)
		}
	}

	return results, nil
}
