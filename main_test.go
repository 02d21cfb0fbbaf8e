package main

import (
	"testing"
	"time"

	"github.com/alecthomas/kong"
)

func parseCLI(t *testing.T, args ...string) (*CLI, string) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("feedfuser"),
		kong.Vars{"version": "test-version"},
	)
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		t.Fatalf("failed to parse %v: %v", args, err)
	}
	return cli, kctx.Command()
}

func TestCLIParseServe(t *testing.T) {
	cli, command := parseCLI(t, "serve")
	if command != "serve" {
		t.Errorf("expected serve command, got %q", command)
	}

	// Defaults from the struct tags.
	if cli.Serve.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %q", cli.Serve.Addr)
	}
	if cli.Serve.ConfigRoot != "." {
		t.Errorf("expected default config root '.', got %q", cli.Serve.ConfigRoot)
	}
	if cli.Serve.MaxWorkers != 5 {
		t.Errorf("expected default max workers 5, got %d", cli.Serve.MaxWorkers)
	}
	if cli.Serve.ExpireAfter != time.Hour {
		t.Errorf("expected default expire after 1h, got %v", cli.Serve.ExpireAfter)
	}
	if !cli.Serve.CircuitBreaker {
		t.Error("expected circuit breaker on by default")
	}
	if cli.Serve.AllowPrivateIPs {
		t.Error("expected private IPs blocked by default")
	}
}

func TestCLIParseServeFlags(t *testing.T) {
	cli, _ := parseCLI(t, "serve",
		"--addr=:9090",
		"--config-root=/etc/feedfuser",
		"--max-workers=10",
		"--no-circuit-breaker",
		"--allow-private-ips",
	)

	if cli.Serve.Addr != ":9090" {
		t.Errorf("expected addr :9090, got %q", cli.Serve.Addr)
	}
	if cli.Serve.ConfigRoot != "/etc/feedfuser" {
		t.Errorf("expected config root /etc/feedfuser, got %q", cli.Serve.ConfigRoot)
	}
	if cli.Serve.MaxWorkers != 10 {
		t.Errorf("expected max workers 10, got %d", cli.Serve.MaxWorkers)
	}
	if cli.Serve.CircuitBreaker {
		t.Error("expected circuit breaker disabled")
	}
	if !cli.Serve.AllowPrivateIPs {
		t.Error("expected private IPs allowed")
	}
}

func TestCLIParseMcp(t *testing.T) {
	cli, command := parseCLI(t, "mcp", "--transport=http-with-sse")
	if command != "mcp" {
		t.Errorf("expected mcp command, got %q", command)
	}
	if cli.Mcp.Transport != "http-with-sse" {
		t.Errorf("expected http-with-sse transport, got %q", cli.Mcp.Transport)
	}
}

func TestCLIParseMcpRejectsUnknownTransport(t *testing.T) {
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Vars{"version": "test-version"})
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}
	if _, err := parser.Parse([]string{"mcp", "--transport=carrier-pigeon"}); err == nil {
		t.Error("expected enum error for unknown transport")
	}
}

func TestCLIParseImportOpml(t *testing.T) {
	cli, command := parseCLI(t, "import-opml", "daily-news", "subscriptions.opml", "--name=Daily News", "--force")
	if command != "import-opml <feed-id> <source>" {
		t.Errorf("unexpected command: %q", command)
	}
	if cli.ImportOpml.FeedID != "daily-news" {
		t.Errorf("expected feed id daily-news, got %q", cli.ImportOpml.FeedID)
	}
	if cli.ImportOpml.Source != "subscriptions.opml" {
		t.Errorf("expected source subscriptions.opml, got %q", cli.ImportOpml.Source)
	}
	if cli.ImportOpml.Name != "Daily News" {
		t.Errorf("expected name flag, got %q", cli.ImportOpml.Name)
	}
	if !cli.ImportOpml.Force {
		t.Error("expected force flag set")
	}
}

func TestCLIParseRequiresCommand(t *testing.T) {
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Vars{"version": "test-version"})
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}
	if _, err := parser.Parse([]string{}); err == nil {
		t.Error("expected error when no command given")
	}
}
