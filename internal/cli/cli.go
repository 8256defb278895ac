package cli

import (
	"flag"
	"fmt"
	"strings"
	"time"
)

// Ops supported by the uls command.
const (
	OpSubmit = "submit"
	OpList   = "list"
	OpExport = "export"
	OpClear  = "clear"
	OpHealth = "health"
	OpKey    = "key"
)

// CLIArgs are the command-line arguments for one client invocation.
// Keep this small for now — add fields as operations need them.
type CLIArgs struct {
	// ServerURL is the API base URL.
	ServerURL string

	// Op selects the operation to run.
	Op string

	// Log fields for the submit operation. Message is required there;
	// the rest fall back to server-side defaults.
	Message string
	Service string
	Level   string
	Server  string
	TraceID string

	// Output is the local file path for export; empty writes to stdout.
	Output string

	// KeyFile is where the API key is persisted (generate-if-absent).
	KeyFile string

	// Timeout and Retries override the executor defaults for this run;
	// zero means "use default".
	Timeout time.Duration
	Retries int

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by
// passing arbitrary slices. The function is deterministic and does not read
// os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("uls", flag.ContinueOnError)
	var (
		serverURL = fs.String("server", "http://localhost:5000", "API base URL")
		op        = fs.String("op", "", "Operation: submit|list|export|clear|health|key (required)")
		message   = fs.String("message", "", "Log message (required for submit)")
		service   = fs.String("service", "", "Service name for submit")
		level     = fs.String("level", "", "Log level for submit")
		server    = fs.String("logserver", "", "Originating server name for submit")
		traceID   = fs.String("trace", "", "Trace ID for submit (generated when empty)")
		output    = fs.String("out", "", "Output file for export (default: stdout)")
		keyFile   = fs.String("keyfile", "", "API key file path (default: ~/.uls/api_key)")
		timeout   = fs.Duration("timeout", 0, "Per-attempt request timeout (0=use default)")
		retries   = fs.Int("retries", 0, "Retries for server/network failures (0=no retry)")
	)

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(nil)

	if err := fs.Parse(args); err != nil {
		// Flag parsing errors are useful to return to caller
		return nil, err
	}

	parsed := &CLIArgs{
		ServerURL: *serverURL,
		Op:        strings.ToLower(strings.TrimSpace(*op)),
		Message:   *message,
		Service:   *service,
		Level:     *level,
		Server:    *server,
		TraceID:   *traceID,
		Output:    *output,
		KeyFile:   *keyFile,
		Timeout:   *timeout,
		Retries:   *retries,
		RawArgs:   args,
	}

	switch parsed.Op {
	case OpSubmit:
		if strings.TrimSpace(parsed.Message) == "" {
			return nil, fmt.Errorf("submit requires a non-empty -message")
		}
	case OpList, OpExport, OpClear, OpHealth, OpKey:
	case "":
		return nil, fmt.Errorf("missing required -op argument")
	default:
		return nil, fmt.Errorf("unknown op %q", parsed.Op)
	}

	return parsed, nil
}
