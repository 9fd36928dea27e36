package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"time"

	"csv-exchange/articles"
	"csv-exchange/codec"
	"csv-exchange/common"
	"csv-exchange/users"
)

// errRowsFailed is returned by validate when any row did not convert.
var errRowsFailed = errors.New("document has rows that do not convert")

// TranscodeCmd reads a document in one dialect and writes it in another.
type TranscodeCmd struct {
	Resource string `help:"Record type of the document." required:"" enum:"users,articles,comments"`
	From     string `help:"Profile the input is read with. Defaults to the comma dialect." type:"existingfile"`
	To       string `help:"Profile the output is written with. Defaults to the comma dialect." type:"existingfile"`
	Input    string `arg:"" optional:"" help:"Input file. Standard input when omitted." type:"existingfile"`
}

func (t *TranscodeCmd) Run(logger *slog.Logger) error {
	in, closeIn, err := openInput(t.Input)
	if err != nil {
		return err
	}
	defer closeIn()
	return t.run(in, os.Stdout, logger)
}

func (t *TranscodeCmd) run(in io.Reader, out io.Writer, logger *slog.Logger) error {
	from, err := newCodec(t.From, logger)
	if err != nil {
		return err
	}
	to, err := newCodec(t.To, logger)
	if err != nil {
		return err
	}

	recs, err := newRecords(t.Resource)
	if err != nil {
		return err
	}
	if err := from.Decode(in, recs); err != nil {
		return err
	}
	if err := to.Encode(out, recs); err != nil {
		return err
	}
	logger.Info("document transcoded", "resource", t.Resource, "records", reflect.ValueOf(recs).Elem().Len())
	return nil
}

// ValidateCmd reads a whole document and reports every row that fails to
// convert, without touching a database.
type ValidateCmd struct {
	Resource string `help:"Record type of the document." required:"" enum:"users,articles,comments"`
	Profile  string `help:"Profile the document is read with. Defaults to the comma dialect." type:"existingfile"`
	Input    string `arg:"" optional:"" help:"Input file. Standard input when omitted." type:"existingfile"`
}

func (v *ValidateCmd) Run(logger *slog.Logger) error {
	in, closeIn, err := openInput(v.Input)
	if err != nil {
		return err
	}
	defer closeIn()
	return v.run(in, os.Stdout, logger)
}

func (v *ValidateCmd) run(in io.Reader, out io.Writer, logger *slog.Logger) error {
	c, err := newCodec(v.Profile, logger, codec.ContinueOnError())
	if err != nil {
		return err
	}
	recs, err := newRecords(v.Resource)
	if err != nil {
		return err
	}

	var rowErrs codec.RowErrors
	err = c.Decode(in, recs)
	if err != nil && !errors.As(err, &rowErrs) {
		return err
	}

	for _, re := range rowErrs {
		result := common.FromRowError(re)
		for _, e := range result.Errors {
			fmt.Fprintf(out, "row %d: %s: %s\n", result.RowNumber, e.Field, e.Message)
		}
	}
	valid := reflect.ValueOf(recs).Elem().Len()
	fmt.Fprintf(out, "%d valid, %d failed\n", valid, len(rowErrs))

	if len(rowErrs) > 0 {
		return errRowsFailed
	}
	return nil
}

// TokenCmd prints a signed bearer token.
type TokenCmd struct {
	Subject string        `arg:"" help:"Subject the token is issued to."`
	TTL     time.Duration `help:"Token lifetime." default:"24h"`
	Secret  string        `help:"Signing secret." env:"JWT_SECRET" required:""`
}

func (t *TokenCmd) Run() error {
	return t.run(os.Stdout)
}

func (t *TokenCmd) run(out io.Writer) error {
	token, err := common.IssueToken(t.Secret, t.Subject, t.TTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

func newCodec(profilePath string, logger *slog.Logger, opts ...codec.Option) (*codec.Codec, error) {
	p, err := loadProfile(profilePath)
	if err != nil {
		return nil, err
	}
	d, err := p.Dialect()
	if err != nil {
		return nil, err
	}
	return codec.New(d, append(opts, codec.WithLogger(logger))...)
}

// newRecords returns a pointer to an empty slice of the resource's records.
func newRecords(resource string) (any, error) {
	switch resource {
	case "users":
		return &[]users.UserModel{}, nil
	case "articles":
		return &[]articles.ArticleModel{}, nil
	case "comments":
		return &[]articles.CommentModel{}, nil
	default:
		return nil, fmt.Errorf("unknown resource type: %s", resource)
	}
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
