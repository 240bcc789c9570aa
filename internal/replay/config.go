// Package replay drives a running coach with a scripted match: it renders
// game state documents round by round, posts them to /gsi at a fixed pace
// and reports what the pipeline detected, admitted and delivered.
package replay

import "time"

// Config holds configuration for a replay run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Rounds     int           // Rounds to script
	Interval   time.Duration // Pause between documents
	Settle     time.Duration // Wait after the last document before reading notifications
	Timeout    time.Duration // HTTP request timeout
	Token      string        // auth.token to embed in every document
	Seed       uint64        // Script seed; equal seeds give equal matches
	OutputFile string        // Optional file for the rendered documents
	Verbose    bool
}

// Frame is one scripted document.
type Frame struct {
	Round int      `json:"round"`
	Label string   `json:"label"`
	Doc   Document `json:"doc"`
}

// Stats holds replay statistics.
type Stats struct {
	FramesGenerated int
	FramesPosted    int
	FramesFailed    int
	EventsDetected  int
	EventsAdmitted  int
	EventsQueued    int
	ByKind          map[string]int
	Notifications   int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

// ingestEvent mirrors one outcome in the /gsi response.
type ingestEvent struct {
	Kind     string `json:"kind"`
	Priority string `json:"priority"`
	Admitted bool   `json:"admitted"`
	Reason   string `json:"reason"`
	Queued   bool   `json:"queued"`
	Error    string `json:"error,omitempty"`
}

type ingestResponse struct {
	Events []ingestEvent `json:"events"`
}

// notification mirrors one item of /notifications.
type notification struct {
	Text      string `json:"text"`
	EventType string `json:"event_type"`
	Source    string `json:"source"`
}
