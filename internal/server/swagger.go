package server

//go:generate swag init -g internal/server/server.go -o docs/swagger

// @title Universal Logging System API
// @version 0.1
// @description Log ingestion, retrieval, CSV export and API-key issuance.
// @BasePath /api
