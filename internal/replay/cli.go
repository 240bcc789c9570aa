package replay

import "os"

// ShowHelp prints usage information for the replay tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Clutch Replay Tool
==================

Plays a scripted match against a running coach and reports what it detected,
admitted and said.

Usage:
  go run ./cmd/replay [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:3000")
  -rounds int
        Rounds to script (default 6)
  -interval duration
        Pause between documents (default 500ms)
  -settle duration
        Wait before reading notifications (default 3s)
  -timeout duration
        HTTP request timeout (default 10s)
  -token string
        auth.token to embed in every document
  -seed uint
        Script seed (default 1)
  -output string
        Write the rendered documents to this file
  -log-format string
        text or json (default "text")
  -verbose
        Log every event and notification
  -help
        Show this help message

Examples:
  go run ./cmd/replay -rounds 12 -interval 250ms
  go run ./cmd/replay -token s3cret -verbose
`)
}
