package articles

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"csv-exchange/codec"
	"csv-exchange/common"
	"csv-exchange/dialect"
	"csv-exchange/users"
)

const (
	authorID  = "6f1f9a57-3c2e-4d5b-9a8e-0d6f4b1c2a10"
	articleID = "9c4d2b1a-7e6f-4a3b-8c2d-1e0f9a8b7c6d"
	commentID = "2a3b4c5d-6e7f-4801-9a2b-3c4d5e6f7a8b"
	missingID = "00000000-0000-4000-8000-000000000000"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := common.Init(common.MemoryDSN(strings.ReplaceAll(t.Name(), "/", "_")))
	require.NoError(t, err)
	t.Cleanup(func() { common.Close() })
	require.NoError(t, users.AutoMigrate(db))
	require.NoError(t, AutoMigrate(db))

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&users.UserModel{
		ID: authorID, Email: "ada@example.com", Name: "Ada", Role: "author",
		Active: true, CreatedAt: created, UpdatedAt: created,
	}).Error)
	require.NoError(t, db.Create(&ArticleModel{
		ID: articleID, Slug: "first-post", Title: "First post", Body: "Hello",
		AuthorID: authorID, Tags: Tags{"go"}, Status: "draft", CreatedAt: created,
	}).Error)
	return db
}

func fieldsOf(r *common.RecordValidationResult) []string {
	var fields []string
	for _, e := range r.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}

func TestTags_Text(t *testing.T) {
	var tags Tags
	require.NoError(t, tags.UnmarshalText([]byte(" go | csv,,io ")))
	assert.Equal(t, Tags{"go", "csv", "io"}, tags)

	b, err := tags.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "go|csv|io", string(b))

	require.NoError(t, tags.UnmarshalText(nil))
	assert.Empty(t, tags)
}

func TestTags_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Tags Tags `json:"tags"`
	}{Tags{"a", "b"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags":["a","b"]}`, string(b))

	b, err = json.Marshal(Tags(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	var tags Tags
	require.NoError(t, json.Unmarshal([]byte(`["x","y"]`), &tags))
	assert.Equal(t, Tags{"x", "y"}, tags)

	require.NoError(t, json.Unmarshal([]byte(`"x|y"`), &tags))
	assert.Equal(t, Tags{"x", "y"}, tags)

	assert.Error(t, json.Unmarshal([]byte(`42`), &tags))
}

func TestTags_Database(t *testing.T) {
	db := setupDB(t)

	var stored ArticleModel
	require.NoError(t, db.First(&stored, "id = ?", articleID).Error)
	assert.Equal(t, Tags{"go"}, stored.Tags)

	var tags Tags
	assert.Error(t, tags.Scan(42))
	require.NoError(t, tags.Scan(nil))
	assert.Nil(t, tags)
}

func TestArticle_Document(t *testing.T) {
	published := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	in := []ArticleModel{{
		ID:          articleID,
		Slug:        "a-b",
		Title:       "A; B",
		Body:        "line one\nline two",
		AuthorID:    authorID,
		Tags:        Tags{"go", "csv"},
		Status:      "published",
		PublishedAt: &published,
		CreatedAt:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}}

	d := dialect.Default().WithSeparator(';').WithPlaceholders()
	data, err := codec.Marshal(in, d, codec.WithLineTerminator("\n"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "go|csv")
	assert.Equal(t, 3, strings.Count(string(data), "\n")+1, "directive, header and one row")

	out, err := codec.Unmarshal[ArticleModel](data, d)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestArticleValidator(t *testing.T) {
	db := setupDB(t)
	published := time.Now().UTC()

	valid := func() ArticleModel {
		return ArticleModel{Title: "Second Post", Body: "text", AuthorID: authorID}
	}

	tests := []struct {
		name   string
		edit   func(a *ArticleModel)
		fields []string
	}{
		{"slug from title", func(a *ArticleModel) {}, nil},
		{"update by slug", func(a *ArticleModel) { a.Slug = "first-post" }, nil},
		{"published", func(a *ArticleModel) { a.Status = "Published"; a.PublishedAt = &published }, nil},
		{"bad id", func(a *ArticleModel) { a.ID = "x" }, []string{"id"}},
		{"no slug or title", func(a *ArticleModel) { a.Title = "" }, []string{"slug", "title"}},
		{"not kebab case", func(a *ArticleModel) { a.Slug = "Not_Kebab" }, []string{"slug"}},
		{"slug of another article", func(a *ArticleModel) { a.ID = missingID; a.Slug = "first-post" }, []string{"slug"}},
		{"missing body", func(a *ArticleModel) { a.Body = " " }, []string{"body"}},
		{"missing author", func(a *ArticleModel) { a.AuthorID = "" }, []string{"author_id"}},
		{"bad author", func(a *ArticleModel) { a.AuthorID = "nope" }, []string{"author_id"}},
		{"unknown author", func(a *ArticleModel) { a.AuthorID = missingID }, []string{"author_id"}},
		{"unknown status", func(a *ArticleModel) { a.Status = "archived" }, []string{"status"}},
		{"published without date", func(a *ArticleModel) { a.Status = "published" }, []string{"published_at"}},
		{"draft with date", func(a *ArticleModel) { a.PublishedAt = &published }, []string{"published_at"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid()
			tt.edit(&a)
			result := NewArticleValidator(db).Validate(&a, 3)
			assert.Equal(t, tt.fields == nil, result.Valid)
			assert.Equal(t, tt.fields, fieldsOf(result))
		})
	}
}

func TestArticleValidator_DuplicateSlug(t *testing.T) {
	v := NewArticleValidator(setupDB(t))

	first := ArticleModel{Title: "Same Title", Body: "a", AuthorID: authorID}
	second := ArticleModel{Slug: "same-title", Title: "Other", Body: "b", AuthorID: authorID}

	assert.True(t, v.Validate(&first, 1).Valid)
	result := v.Validate(&second, 2)
	assert.Equal(t, []string{"slug"}, fieldsOf(result))
}

func TestNormalizeAndUpsertArticles(t *testing.T) {
	db := setupDB(t)

	incoming := []ArticleModel{
		{Slug: "first-post", Title: "First post, revised", Body: "Hello again", AuthorID: authorID, Tags: Tags{"go", "news"}},
		{Title: "Brand New Post", Body: "Body", AuthorID: " " + authorID + " ", Status: "DRAFT"},
	}
	for i := range incoming {
		NormalizeArticle(&incoming[i])
	}
	assert.Equal(t, "brand-new-post", incoming[1].Slug)
	assert.Equal(t, "draft", incoming[1].Status)
	assert.Equal(t, authorID, incoming[1].AuthorID)
	assert.NotEmpty(t, incoming[1].ID)

	require.NoError(t, UpsertArticles(db, incoming))
	require.NoError(t, UpsertArticles(db, nil))

	var first ArticleModel
	require.NoError(t, db.First(&first, "slug = ?", "first-post").Error)
	assert.Equal(t, articleID, first.ID)
	assert.Equal(t, "First post, revised", first.Title)
	assert.Equal(t, Tags{"go", "news"}, first.Tags)

	var drafts []ArticleModel
	require.NoError(t, QueryArticles(db, map[string]string{"status": "draft", "author_id": authorID}).Find(&drafts).Error)
	assert.Len(t, drafts, 2)

	var published []ArticleModel
	require.NoError(t, QueryArticles(db, map[string]string{"status": "published"}).Find(&published).Error)
	assert.Empty(t, published)
}

func TestCommentValidator(t *testing.T) {
	db := setupDB(t)

	valid := func() CommentModel {
		return CommentModel{ID: commentID, ArticleID: articleID, UserID: authorID, Body: "Nice post"}
	}

	tests := []struct {
		name   string
		edit   func(c *CommentModel)
		fields []string
	}{
		{"valid", func(c *CommentModel) {}, nil},
		{"missing id", func(c *CommentModel) { c.ID = "" }, []string{"id"}},
		{"bad id", func(c *CommentModel) { c.ID = "123" }, []string{"id"}},
		{"unknown article", func(c *CommentModel) { c.ArticleID = missingID }, []string{"article_id"}},
		{"missing user", func(c *CommentModel) { c.UserID = "" }, []string{"user_id"}},
		{"bad user", func(c *CommentModel) { c.UserID = "u1" }, []string{"user_id"}},
		{"missing body", func(c *CommentModel) { c.Body = "" }, []string{"body"}},
		{"too long", func(c *CommentModel) { c.Body = strings.Repeat("word ", MaxCommentWords+1) }, []string{"body"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.edit(&c)
			result := NewCommentValidator(db).Validate(&c, 1)
			assert.Equal(t, tt.fields == nil, result.Valid)
			assert.Equal(t, tt.fields, fieldsOf(result))
		})
	}

	t.Run("duplicate id", func(t *testing.T) {
		v := NewCommentValidator(db)
		first, second := valid(), valid()
		assert.True(t, v.Validate(&first, 1).Valid)
		result := v.Validate(&second, 2)
		require.Equal(t, []string{"id"}, fieldsOf(result))
		assert.Contains(t, result.Errors[0].Message, "row 1")
	})
}

func TestUpsertAndQueryComments(t *testing.T) {
	db := setupDB(t)

	c := CommentModel{ID: " " + commentID, ArticleID: articleID, UserID: authorID, Body: "first"}
	NormalizeComment(&c)
	assert.Equal(t, commentID, c.ID)
	assert.False(t, c.CreatedAt.IsZero())
	require.NoError(t, UpsertComments(db, []CommentModel{c}))

	c.Body = "edited"
	require.NoError(t, UpsertComments(db, []CommentModel{c}))

	var found []CommentModel
	require.NoError(t, QueryComments(db, map[string]string{"article_id": articleID, "user_id": authorID}).Find(&found).Error)
	require.Len(t, found, 1)
	assert.Equal(t, "edited", found[0].Body)

	require.NoError(t, QueryComments(db, map[string]string{"user_id": missingID}).Find(&found).Error)
	assert.Empty(t, found)
}

func TestDeleteOrphans(t *testing.T) {
	db := setupDB(t)
	now := time.Now().UTC()

	orphanArticle := "5b6c7d8e-9f0a-4b1c-8d2e-3f4a5b6c7d8e"
	require.NoError(t, db.Create(&ArticleModel{
		ID: orphanArticle, Slug: "orphan", Title: "Orphan", Body: "x",
		AuthorID: missingID, Status: "draft", CreatedAt: now,
	}).Error)
	require.NoError(t, db.Create(&[]CommentModel{
		{ID: commentID, ArticleID: articleID, UserID: authorID, Body: "kept", CreatedAt: now},
		{ID: "7e8f9a0b-1c2d-4e3f-8a4b-5c6d7e8f9a0b", ArticleID: orphanArticle, UserID: missingID, Body: "gone", CreatedAt: now},
	}).Error)

	results, err := DeleteOrphans(db, "articles")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, orphanArticle, results[0].RecordID)
	assert.False(t, results[0].Valid)
	assert.Equal(t, "author_id", results[0].Errors[0].Field)

	results, err = DeleteOrphans(db, "comments")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"article_id", "user_id"}, fieldsOf(&results[0]))

	var remaining int64
	require.NoError(t, db.Model(&CommentModel{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
	require.NoError(t, db.Model(&ArticleModel{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}
