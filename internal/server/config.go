package server

import "github.com/ulsys/uls/internal/logging"

type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string

	// StorageRoot is the directory holding the SQLite database and the
	// exports directory.
	StorageRoot string

	// Logger is optional; a stdout logger is used when nil.
	Logger logging.Logger
}
