package main

import (
	"context"
	"fmt"
	"net/http/httptest"

	"github.com/ulsys/uls/internal/client"
	"github.com/ulsys/uls/internal/logging"
	"github.com/ulsys/uls/internal/model"
	"github.com/ulsys/uls/internal/server"
)

// Demo run: start the backend in-process, generate a key, submit a couple of
// log records and read them back through the resilient client.
func main() {
	logger := logging.NewStdoutLogger("demo")

	srv, err := server.NewServer(server.Config{StorageRoot: "./data-demo", Logger: logger})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer srv.Close()

	ts := httptest.NewServer(srv)
	defer ts.Close() // Close AFTER the demo calls

	ctx := context.Background()

	boot := client.New(client.Config{BaseURL: ts.URL, Logger: logger})
	key, err := boot.GenerateKey(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	api := client.New(client.Config{
		BaseURL:     ts.URL,
		Credentials: client.StaticCredential(key),
		Logger:      logger,
		MaxRetries:  2,
	})

	for _, msg := range []string{"service started", "cache warmed"} {
		if _, err := api.SubmitLog(ctx, model.LogEntry{Service: "demo", Message: msg}); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
	}

	logs, err := api.ListLogs(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("got %d logs:\n", len(logs))
	for _, e := range logs {
		fmt.Printf("  [%s] %s %s — %s\n", e.Timestamp, e.Service, e.Level, e.Message)
	}
}
