package plugin

import (
	"context"
)

// Plugin is the interface that all plugins must implement. The host calls
// it from background goroutines; a plugin never touches the roster and
// answers with notices and replies instead.
type Plugin interface {
	// Info describes the plugin and the commands it adds
	Info(ctx context.Context) (Info, error)

	// Notify delivers a buddy list event. The returned notices are shown
	// in the status bar.
	Notify(ctx context.Context, event Event) ([]Notice, error)

	// Command runs one of the commands listed in Info
	Command(ctx context.Context, name string, args []string) (Reply, error)
}

// Info contains plugin metadata
type Info struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
	Commands    []Command `json:"commands,omitempty"`
}

// Command is a command line entry contributed by a plugin
type Command struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Args        []string `json:"args,omitempty"`

	// Values completes the first argument
	Values []string `json:"values,omitempty"`
}

// EventKind identifies what happened
type EventKind string

const (
	// EventPresence is a buddy changing status
	EventPresence EventKind = "presence"

	// EventMergeProposed is a new duplicate contact proposal
	EventMergeProposed EventKind = "merge_proposed"
)

// Event is a buddy list change forwarded to plugins
type Event struct {
	Kind EventKind `json:"kind"`

	// Account and Name identify the buddy of a presence event
	Account string `json:"account,omitempty"`
	Name    string `json:"name,omitempty"`

	// Display is the name shown in the list
	Display string `json:"display,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`

	Group      string `json:"group,omitempty"`
	Candidates int    `json:"candidates,omitempty"`
}

// Notice is a one-line message for the status bar
type Notice struct {
	Text  string `json:"text"`
	Error bool   `json:"error,omitempty"`
}

// Reply is the result of a plugin command
type Reply struct {
	Text string `json:"text"`
}
