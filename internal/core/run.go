package core

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects what a run does.
type Mode string

const (
	ModeSubscribed Mode = "subscribed"
	ModeModerated  Mode = "moderated"
	ModeSubscribe  Mode = "subscribe"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeSubscribed:
		return ModeSubscribed, nil
	case ModeModerated:
		return ModeModerated, nil
	case ModeSubscribe:
		return ModeSubscribe, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected subscribed, moderated or subscribe)", raw)
	}
}

// Run records a single execution. FailedExports lists formats whose export
// returned false; they do not fail the run.
type Run struct {
	ID            string     `json:"id" yaml:"id"`
	Mode          Mode       `json:"mode" yaml:"mode"`
	Username      string     `json:"username" yaml:"username"`
	StartedAt     time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Status        RunStatus  `json:"status" yaml:"status"`
	TriggerType   string     `json:"trigger_type" yaml:"trigger_type"`
	Fetched       int        `json:"fetched" yaml:"fetched"`
	Files         []string   `json:"files,omitempty" yaml:"files,omitempty"`
	FailedExports []string   `json:"failed_exports,omitempty" yaml:"failed_exports,omitempty"`
	Added         []string   `json:"added,omitempty" yaml:"added,omitempty"`
	Removed       []string   `json:"removed,omitempty" yaml:"removed,omitempty"`
	Requested     int        `json:"requested,omitempty" yaml:"requested,omitempty"`
	Subscribed    int        `json:"subscribed,omitempty" yaml:"subscribed,omitempty"`
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// TriggerEvent is emitted by a schedule each time it fires.
type TriggerEvent struct {
	Timestamp time.Time
}
