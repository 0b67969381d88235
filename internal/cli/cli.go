package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Config holds the parsed command line. QuitOnFailure and MaxConcurrent are
// pointers so the orchestrator can tell "not provided, use the campaign's
// own setting" apart from an explicit override of false/0.
type Config struct {
	CampaignPath  string
	LogFormat     string
	LogLevel      string
	QuitOnFailure *bool
	MaxConcurrent *int
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Config, bool, error) {
	flagSet := flag.NewFlagSet("dagsched", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
dagsched - a declarative DAG task orchestrator.

Usage:
  dagsched [options] [CAMPAIGN_PATH]

Arguments:
  CAMPAIGN_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	campaignFlag := flagSet.String("campaign", "", "Path to the campaign file or directory.")
	cFlag := flagSet.String("c", "", "Path to the campaign file or directory (shorthand).")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	quitOnFailureFlag := flagSet.Bool("quit-on-failure", false, "Override the campaign's quit_on_failure setting.")
	maxConcurrentFlag := flagSet.Int("max-concurrent", 0, "Override the campaign's max_concurrent setting; 0 or less means unbounded. Omit to keep the campaign's value.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := ""
	if *campaignFlag != "" {
		path = *campaignFlag
	} else if *cFlag != "" {
		path = *cFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	cfg := &Config{
		CampaignPath: path,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	}

	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "quit-on-failure":
			v := *quitOnFailureFlag
			cfg.QuitOnFailure = &v
		case "max-concurrent":
			v := *maxConcurrentFlag
			cfg.MaxConcurrent = &v
		}
	})

	return cfg, false, nil
}
