package main

import "testing"

func TestRunFailsWithoutQueueAndDatabase(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("NATS_URL", "")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("LOG_LEVEL", "error")

	if code := run(); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}
