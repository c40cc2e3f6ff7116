package infra

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"mediakit/internal/config"
)

func TestNewHTTPServer(t *testing.T) {
	cfg := config.Config{
		Addr:             "127.0.0.1:0",
		HTTPReadTimeout:  3 * time.Second,
		HTTPWriteTimeout: 0,
		HTTPIdleTimeout:  time.Minute,
	}
	srv := NewHTTPServer(cfg, http.NotFoundHandler())
	if srv.Addr() != "127.0.0.1:0" {
		t.Fatalf("Addr() = %q", srv.Addr())
	}
	if srv.server.WriteTimeout != 0 || srv.server.ReadTimeout != 3*time.Second {
		t.Fatalf("unexpected timeouts: read=%s write=%s", srv.server.ReadTimeout, srv.server.WriteTimeout)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown on idle server: %v", err)
	}
}

func TestNilServerIsInert(t *testing.T) {
	var srv HTTPServer
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestConsoleLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	quiet := NewConsoleLogger(&buf, false)
	quiet.Info().Msg("hidden")
	quiet.Warn().Msg("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}

	buf.Reset()
	loud := NewConsoleLogger(&buf, true)
	loud.Debug().Msg("debugging")
	if !strings.Contains(buf.String(), "debugging") {
		t.Fatalf("verbose logger dropped debug line: %q", buf.String())
	}
}
