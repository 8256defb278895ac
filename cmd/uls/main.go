// Command uls is the client CLI for the Universal Logging System API. It
// submits, lists, exports and clears logs through the resilient client SDK,
// generating and persisting an API key on first use.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ulsys/uls/internal/cli"
	"github.com/ulsys/uls/internal/client"
	"github.com/ulsys/uls/internal/logging"
	"github.com/ulsys/uls/internal/model"
)

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("uls: %v", err)
	}

	if err := run(context.Background(), args); err != nil {
		log.Fatalf("uls: %v", err)
	}
}

func run(ctx context.Context, args *cli.CLIArgs) error {
	logger := logging.NewStdoutLogger("uls")

	keyFile := args.KeyFile
	if keyFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		keyFile = filepath.Join(home, ".uls", "api_key")
	}

	// A credential-less client handles key generation; the API client
	// proper reads the key from the file store, generating on first use.
	boot := client.New(client.Config{
		BaseURL:    args.ServerURL,
		Logger:     logger,
		Timeout:    args.Timeout,
		MaxRetries: args.Retries,
	})
	creds := client.NewFileCredentialStore(keyFile, boot)
	api := client.New(client.Config{
		BaseURL:     args.ServerURL,
		Credentials: creds,
		Logger:      logger,
		Timeout:     args.Timeout,
		MaxRetries:  args.Retries,
	})

	switch args.Op {
	case cli.OpSubmit:
		traceID := args.TraceID
		if traceID == "" {
			traceID = uuid.New().String()
		}
		saved, err := api.SubmitLog(ctx, model.LogEntry{
			Service: args.Service,
			Level:   args.Level,
			Message: args.Message,
			Server:  args.Server,
			TraceID: traceID,
		})
		if err != nil {
			return err
		}
		fmt.Printf("saved: [%s] %s %s — %s (trace %s)\n",
			saved.Timestamp, saved.Service, saved.Level, saved.Message, saved.TraceID)

	case cli.OpList:
		logs, err := api.ListLogs(ctx)
		if err != nil {
			return err
		}
		for _, e := range logs {
			fmt.Printf("[%s] %-12s %-7s %s (%s)\n", e.Timestamp, e.Service, e.Level, e.Message, e.Server)
		}
		fmt.Printf("%d log(s)\n", len(logs))

	case cli.OpExport:
		data, err := api.ExportCSV(ctx)
		if err != nil {
			return err
		}
		if args.Output == "" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(args.Output, data, 0o644); err != nil {
			return fmt.Errorf("write export to %s: %w", args.Output, err)
		}
		fmt.Printf("exported %d bytes to %s\n", len(data), args.Output)

	case cli.OpClear:
		if err := api.ClearLogs(ctx); err != nil {
			return err
		}
		fmt.Println("logs cleared")

	case cli.OpHealth:
		status, err := api.Health(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", status.Status, status.Message)

	case cli.OpKey:
		key, err := creds.Get(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("api key: %s (stored in %s)\n", key, keyFile)

	default:
		return fmt.Errorf("unknown op %q", args.Op)
	}

	return nil
}
