// Command ulsd starts the Universal Logging System backend.
// Usage: go run ./cmd/ulsd [-addr :5000] [-storage ./data]
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/ulsys/uls/internal/logging"
	"github.com/ulsys/uls/internal/server"
)

func main() {
	addr := flag.String("addr", ":5000", "HTTP listen address")
	storage := flag.String("storage", "./data", "Storage root for the database and exports")
	flag.Parse()

	logger := logging.NewStdoutLogger("ulsd")

	srv, err := server.NewServer(server.Config{
		ListenAddr:  *addr,
		StorageRoot: *storage,
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("starting server: %v", err)
	}
	defer srv.Close()

	fmt.Println("====================================")
	fmt.Println("  Universal Logging System Backend  ")
	fmt.Println("====================================")
	fmt.Printf("Listening on %s, storage in %s\n", *addr, *storage)
	fmt.Println("====================================")

	if err := srv.HTTPServer().ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
