package main

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"github.com/meszmate/buddylist/pkg/plugin"
)

// StatusNotifyPlugin reports status changes and duplicate contacts, in the
// status bar and as desktop notifications
type StatusNotifyPlugin struct {
	mu      sync.Mutex
	desktop bool
	send    func(title, body string) error
}

func newStatusNotify() *StatusNotifyPlugin {
	return &StatusNotifyPlugin{desktop: true, send: sendNotification}
}

// Info describes the plugin
func (p *StatusNotifyPlugin) Info(context.Context) (plugin.Info, error) {
	return plugin.Info{
		Name:        "statusnotify",
		Version:     "1.0.0",
		Description: "Notifications for status changes",
		Commands: []plugin.Command{{
			Name:        "notify",
			Description: "Turn desktop notifications on or off",
			Args:        []string{"on|off"},
			Values:      []string{"on", "off"},
		}},
	}, nil
}

// Notify turns an event into a notice
func (p *StatusNotifyPlugin) Notify(_ context.Context, event plugin.Event) ([]plugin.Notice, error) {
	var message string
	switch event.Kind {
	case plugin.EventPresence:
		name := event.Display
		if name == "" {
			name = event.Name
		}
		switch event.Status {
		case "online":
			message = fmt.Sprintf("%s is now online", name)
		case "away", "xa":
			message = fmt.Sprintf("%s is away", name)
		case "dnd":
			message = fmt.Sprintf("%s is busy", name)
		case "offline":
			message = fmt.Sprintf("%s went offline", name)
		default:
			return nil, nil
		}
	case plugin.EventMergeProposed:
		message = fmt.Sprintf("%d contacts in %s look like %s", event.Candidates, event.Group, event.Display)
	default:
		return nil, nil
	}

	p.mu.Lock()
	desktop := p.desktop
	p.mu.Unlock()
	if desktop {
		if err := p.send("Buddy List", message); err != nil {
			return []plugin.Notice{{Text: message}, {Text: "desktop notification failed: " + err.Error(), Error: true}}, nil
		}
	}
	return []plugin.Notice{{Text: message}}, nil
}

// Command handles :notify
func (p *StatusNotifyPlugin) Command(_ context.Context, name string, args []string) (plugin.Reply, error) {
	if name != "notify" {
		return plugin.Reply{}, fmt.Errorf("unknown command: %s", name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case len(args) == 0:
		p.desktop = !p.desktop
	case args[0] == "on":
		p.desktop = true
	case args[0] == "off":
		p.desktop = false
	default:
		return plugin.Reply{}, fmt.Errorf("usage: notify on|off")
	}
	if p.desktop {
		return plugin.Reply{Text: "desktop notifications on"}, nil
	}
	return plugin.Reply{Text: "desktop notifications off"}, nil
}

// sendNotification sends a desktop notification
func sendNotification(title, body string) error {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title %q`, body, title)
		return exec.Command("osascript", "-e", script).Run()
	case "linux":
		return exec.Command("notify-send", title, body).Run()
	default:
		return nil
	}
}

func main() {
	plugin.Serve(newStatusNotify())
}
