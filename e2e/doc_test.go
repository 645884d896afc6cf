//go:build e2e

// Package e2e runs the backend suite against live engines.
//
//	DIMSTORE_E2E_POSTGRES_DSN=postgres://localhost/dimstore_test \
//	DIMSTORE_E2E_DYNAMODB=1 DIMSTORE_E2E_DYNAMODB_ENDPOINT=http://localhost:8000 \
//	go test -tags=e2e -v ./e2e/...
//
// Each engine is skipped when its variables are unset. Every test gets its
// own Postgres schema or DynamoDB table prefix, dropped afterwards.
package e2e
