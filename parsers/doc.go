// Package parsers streams typed records out of uploaded files.
//
// ParseCSV reads delimited documents through a codec.Codec, so every dialect
// the codec supports can be imported. ParseNDJSON reads one JSON object per
// line. Both return a records channel and an errors channel:
//
//	records, errs := parsers.ParseCSV[users.UserModel](ctx, file, c)
//	for row := range records {
//	    fmt.Println(row.Number, row.Record.Email)
//	}
//	for err := range errs {
//	    slog.Warn("skipped row", "error", err)
//	}
//
// Errors are held back until the records channel is closed, so callers may
// drain the channels one after the other. Cancelling ctx stops the producer.
package parsers
