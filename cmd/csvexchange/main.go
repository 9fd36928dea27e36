// Command csvexchange serves the bulk import and export API and offers
// offline tools for dialect-aware CSV documents.
package main

import (
	"github.com/alecthomas/kong"

	"csv-exchange/common"
)

// CLI is the command line of csvexchange.
type CLI struct {
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info" env:"LOG_LEVEL"`
	LogFormat string `help:"Log format." default:"text" enum:"text,json" env:"LOG_FORMAT"`

	Serve     ServeCmd     `cmd:"" help:"Run the import and export HTTP service."`
	Transcode TranscodeCmd `cmd:"" help:"Rewrite a document from one dialect into another."`
	Validate  ValidateCmd  `cmd:"" help:"Check that every row of a document converts."`
	Token     TokenCmd     `cmd:"" help:"Issue a bearer token for the service."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("csvexchange"),
		kong.Description("Dialect-aware CSV import and export."),
		kong.UsageOnError(),
	)

	logger := common.SetupLogging(cli.LogLevel, cli.LogFormat)
	ctx.FatalIfErrorf(ctx.Run(logger))
}
