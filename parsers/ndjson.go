package parsers

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// LineError reports an NDJSON line that did not decode.
type LineError struct {
	Line int // 1-based
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("ndjson: line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// maxLine is the longest NDJSON line accepted.
const maxLine = 1024 * 1024

// ParseNDJSON decodes newline-delimited JSON objects read from r into T and
// streams them. Number is the 1-based line number; blank lines are skipped.
// Lines that fail to decode are reported as *LineError after the records
// channel is closed.
func ParseNDJSON[T any](ctx context.Context, r io.Reader) (<-chan Row[T], <-chan error) {
	records := make(chan Row[T], 100)
	errs := make(chan error, 16)

	go func() {
		var failures []error
		defer func() {
			close(records)
			deliver(ctx, errs, failures)
		}()

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLine)

		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var rec T
			if err := json.Unmarshal(line, &rec); err != nil {
				failures = append(failures, &LineError{Line: lineNum, Err: err})
				continue
			}

			select {
			case records <- Row[T]{Number: lineNum, Record: rec}:
			case <-ctx.Done():
				failures = append(failures, ctx.Err())
				return
			}
		}

		// e.g. a line longer than maxLine
		if err := scanner.Err(); err != nil {
			failures = append(failures, &LineError{Line: lineNum + 1, Err: err})
		}
	}()

	return records, errs
}
