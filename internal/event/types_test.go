package event

import (
	"errors"
	"testing"
	"time"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelMunge, "munge"},
		{LevelInfo, "info"},
		{LevelWarning, "warning"},
		{LevelError, "error"},
		{Level(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"munge", "info", "warning", "error"} {
		l, err := ParseLevel(name)
		if err != nil {
			t.Errorf("ParseLevel(%q) error = %v", name, err)
		}
		if l.String() != name {
			t.Errorf("ParseLevel(%q) = %v", name, l)
		}
	}

	if _, err := ParseLevel("fatal"); err == nil {
		t.Error("ParseLevel(fatal) should fail")
	}
}

func TestEventConstructors(t *testing.T) {
	job := JobRef{Index: 2, Name: "c.bat"}
	boom := errors.New("boom")

	tests := []struct {
		name  string
		event Event
		topic string
		level Level
	}{
		{"run started", NewRunStartedEvent("r", 3), TopicRunStarted, LevelInfo},
		{"run completed", NewRunCompletedEvent("r", 3, 0, time.Second), TopicRunCompleted, LevelInfo},
		{"run completed with failures", NewRunCompletedEvent("r", 3, 1, time.Second), TopicRunCompleted, LevelWarning},
		{"run aborted", NewRunAbortedEvent("r", job, time.Second), TopicRunAborted, LevelWarning},
		{"run failed", NewRunFailedEvent("r", job, boom, time.Second), TopicRunFailed, LevelError},
		{"job started", NewJobStartedEvent("r", job, "/p/c.bat", "/p", []string{"PC"}), TopicJobStarted, LevelInfo},
		{"job output", NewJobOutputEvent("r", job, "stdout", "ok"), TopicJobOutput, LevelMunge},
		{"job exited zero", NewJobExitedEvent("r", job, 0, false, time.Second), TopicJobExited, LevelInfo},
		{"job exited non-zero", NewJobExitedEvent("r", job, 1, false, time.Second), TopicJobExited, LevelWarning},
		{"job killed", NewJobExitedEvent("r", job, -1, true, time.Second), TopicJobExited, LevelWarning},
		{"job failed", NewJobFailedEvent("r", job, boom), TopicJobFailed, LevelError},
		{"copy succeeded", NewCopySucceededEvent("r", job, "/a", "/b", 1), TopicCopySucceeded, LevelInfo},
		{"copy failed", NewCopyFailedEvent("r", job, "/a", "/b", boom), TopicCopyFailed, LevelWarning},
		{"copy skipped", NewCopySkippedEvent("r", job, SkipCopyDisabled), TopicCopySkipped, LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.event.EventType() != tt.topic {
				t.Errorf("EventType() = %q, want %q", tt.event.EventType(), tt.topic)
			}
			if tt.event.Level() != tt.level {
				t.Errorf("Level() = %v, want %v", tt.event.Level(), tt.level)
			}
			if tt.event.RunID() != "r" {
				t.Errorf("RunID() = %q", tt.event.RunID())
			}
			if tt.event.Timestamp().IsZero() {
				t.Error("Timestamp() should be set")
			}
		})
	}
}
