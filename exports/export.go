package exports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"csv-exchange/articles"
	"csv-exchange/codec"
	"csv-exchange/config"
	"csv-exchange/schema"
	"csv-exchange/users"
)

const (
	// BatchSize is the number of records fetched in a single query
	BatchSize = 2000

	// ProgressUpdateInterval controls how often export jobs update progress (in records)
	ProgressUpdateInterval = 10000
)

// ErrUnknownField is returned for a field selection naming no column.
var ErrUnknownField = errors.New("unknown field")

// Request describes one export: what to read and how to write it.
type Request struct {
	Resource string
	Format   string
	Profile  config.Profile
	Fields   []string
	Filters  map[string]string

	// Progress, when set, is called with the running record count.
	Progress func(n int)
}

// fieldsProvider narrows the default schema to the selected fields, in the
// order they were selected.
type fieldsProvider struct {
	fields []string
}

func (p fieldsProvider) Schema(t reflect.Type) (*schema.Schema, error) {
	base, err := schema.Default.Schema(t)
	if err != nil {
		return nil, err
	}
	if len(p.fields) == 0 {
		return base, nil
	}

	descs := make([]schema.FieldDescriptor, 0, len(p.fields))
	for i, name := range p.fields {
		f, ok := base.Lookup(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		f.Order = i
		descs = append(descs, f)
	}
	return schema.New(base.Type(), descs)
}

// Write streams the records selected by req to w and returns how many were
// written.
func Write(ctx context.Context, w io.Writer, db *gorm.DB, req Request) (int, error) {
	switch req.Resource {
	case "users":
		return write[users.UserModel](ctx, w, users.Query(db, req.Filters), req)
	case "articles":
		return write[articles.ArticleModel](ctx, w, articles.QueryArticles(db, req.Filters), req)
	case "comments":
		return write[articles.CommentModel](ctx, w, articles.QueryComments(db, req.Filters), req)
	default:
		return 0, fmt.Errorf("unknown resource type: %s", req.Resource)
	}
}

// Validate checks the dialect and field selection of req without reading
// any rows.
func Validate(req Request) error {
	if _, err := req.Profile.Dialect(); err != nil {
		return err
	}
	var t reflect.Type
	switch req.Resource {
	case "users":
		t = reflect.TypeOf(users.UserModel{})
	case "articles":
		t = reflect.TypeOf(articles.ArticleModel{})
	case "comments":
		t = reflect.TypeOf(articles.CommentModel{})
	default:
		return fmt.Errorf("unknown resource type: %s", req.Resource)
	}
	_, err := fieldsProvider{req.Fields}.Schema(t)
	return err
}

func write[T any](ctx context.Context, w io.Writer, q *gorm.DB, req Request) (int, error) {
	if req.Format == "ndjson" {
		return writeNDJSON[T](ctx, w, q, req)
	}

	d, err := req.Profile.Dialect()
	if err != nil {
		return 0, err
	}
	c, err := codec.New(d, codec.WithProvider(fieldsProvider{req.Fields}), codec.WithLogger(slog.Default()))
	if err != nil {
		return 0, err
	}

	all := make([]T, 0)
	err = eachBatch(ctx, q, func(batch []T) error {
		all = append(all, batch...)
		if req.Progress != nil {
			req.Progress(len(all))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	// The codec renders whole documents; buffer so a failure leaves w untouched.
	var buf bytes.Buffer
	if err := c.Encode(&buf, all); err != nil {
		return 0, err
	}
	if _, err := buf.WriteTo(w); err != nil {
		return 0, err
	}
	return len(all), nil
}

func writeNDJSON[T any](ctx context.Context, w io.Writer, q *gorm.DB, req Request) (int, error) {
	enc := json.NewEncoder(w)
	selected := len(req.Fields) > 0

	total := 0
	err := eachBatch(ctx, q, func(batch []T) error {
		for i := range batch {
			var v any = batch[i]
			if selected {
				picked, err := pick(batch[i], req.Fields)
				if err != nil {
					return err
				}
				v = picked
			}
			if err := enc.Encode(v); err != nil {
				return err
			}
			total++
		}
		if req.Progress != nil {
			req.Progress(total)
		}
		return nil
	})
	return total, err
}

// pick keeps the selected JSON members of rec.
func pick(rec any, fields []string) (map[string]json.RawMessage, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(b, &members); err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		m, ok := members[f]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, f)
		}
		out[f] = m
	}
	return out, nil
}

// eachBatch pages through q with limit and offset.
func eachBatch[T any](ctx context.Context, q *gorm.DB, fn func([]T) error) error {
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var batch []T
		if err := q.Session(&gorm.Session{}).Limit(BatchSize).Offset(offset).Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < BatchSize {
			return nil
		}
		offset += BatchSize
	}
}
