package plugin

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

// Handshake is the plugin handshake config
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "BUDDYLIST_PLUGIN",
	MagicCookieValue: "buddylist",
}

const pluginKey = "buddylist"

// callTimeout bounds every call into a plugin
const callTimeout = 5 * time.Second

// Host manages plugin lifecycle. Plugins are called from background
// goroutines, so the host is safe for concurrent use.
type Host struct {
	mu      sync.RWMutex
	plugins map[string]*LoadedPlugin
	dir     string
	logOut  io.Writer
}

// LoadedPlugin represents a loaded plugin
type LoadedPlugin struct {
	Info   Info
	Plugin Plugin
	client *plugin.Client
}

// NewHost creates a plugin host for executables in dir. Plugin process
// logs go to logOut.
func NewHost(dir string, logOut io.Writer) *Host {
	if logOut == nil {
		logOut = io.Discard
	}
	return &Host{
		plugins: make(map[string]*LoadedPlugin),
		dir:     dir,
		logOut:  logOut,
	}
}

// LoadAll starts the named plugins from the plugin directory. A plugin
// that fails to start is reported in the returned error; the others
// still load.
func (h *Host) LoadAll(names []string) error {
	var errs []error
	for _, name := range names {
		path := filepath.Join(h.dir, name)
		if _, err := os.Stat(path); err != nil {
			errs = append(errs, fmt.Errorf("plugin %s: %w", name, err))
			continue
		}
		if err := h.Load(path); err != nil {
			errs = append(errs, fmt.Errorf("plugin %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Load starts a plugin executable and registers it under its own name
func (h *Host) Load(path string) error {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			pluginKey: &GRPCPlugin{},
		},
		Cmd: exec.Command(path),
		AllowedProtocols: []plugin.Protocol{
			plugin.ProtocolGRPC,
		},
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:   "plugin",
			Output: h.logOut,
			Level:  hclog.Info,
		}),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return fmt.Errorf("failed to connect to plugin: %w", err)
	}
	raw, err := rpcClient.Dispense(pluginKey)
	if err != nil {
		client.Kill()
		return fmt.Errorf("failed to dispense plugin: %w", err)
	}

	if err := h.register(raw.(Plugin), client); err != nil {
		client.Kill()
		return err
	}
	return nil
}

// Register adds a plugin that runs in this process
func (h *Host) Register(p Plugin) error {
	return h.register(p, nil)
}

func (h *Host) register(p Plugin, client *plugin.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	info, err := p.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to describe plugin: %w", err)
	}
	if info.Name == "" {
		return errors.New("plugin has no name")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.plugins[info.Name]; ok {
		return fmt.Errorf("plugin %s already loaded", info.Name)
	}
	for _, cmd := range info.Commands {
		if owner := h.ownerLocked(cmd.Name); owner != nil {
			return fmt.Errorf("command %s already provided by plugin %s", cmd.Name, owner.Info.Name)
		}
	}
	h.plugins[info.Name] = &LoadedPlugin{Info: info, Plugin: p, client: client}
	return nil
}

// Unload stops a plugin
func (h *Host) Unload(name string) {
	h.mu.Lock()
	lp := h.plugins[name]
	delete(h.plugins, name)
	h.mu.Unlock()

	if lp != nil && lp.client != nil {
		lp.client.Kill()
	}
}

// UnloadAll stops every plugin
func (h *Host) UnloadAll() {
	for _, lp := range h.List() {
		h.Unload(lp.Info.Name)
	}
}

// List returns the loaded plugins ordered by name
func (h *Host) List() []*LoadedPlugin {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]*LoadedPlugin, 0, len(h.plugins))
	for _, lp := range h.plugins {
		result = append(result, lp)
	}
	slices.SortFunc(result, func(a, b *LoadedPlugin) int {
		return cmp.Compare(a.Info.Name, b.Info.Name)
	})
	return result
}

// Commands returns the commands of every loaded plugin
func (h *Host) Commands() []Command {
	var cmds []Command
	for _, lp := range h.List() {
		cmds = append(cmds, lp.Info.Commands...)
	}
	return cmds
}

// Notify delivers event to every plugin and collects their notices. A
// failing plugin contributes an error notice.
func (h *Host) Notify(ctx context.Context, event Event) []Notice {
	var notices []Notice
	for _, lp := range h.List() {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		got, err := lp.Plugin.Notify(callCtx, event)
		cancel()
		if err != nil {
			notices = append(notices, Notice{Text: fmt.Sprintf("plugin %s: %v", lp.Info.Name, err), Error: true})
			continue
		}
		notices = append(notices, got...)
	}
	return notices
}

// Run executes a plugin command
func (h *Host) Run(ctx context.Context, name string, args []string) (Reply, error) {
	h.mu.RLock()
	lp := h.ownerLocked(name)
	h.mu.RUnlock()
	if lp == nil {
		return Reply{}, fmt.Errorf("unknown command: %s", name)
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	reply, err := lp.Plugin.Command(ctx, name, args)
	if err != nil {
		return Reply{}, fmt.Errorf("plugin %s: %w", lp.Info.Name, err)
	}
	return reply, nil
}

// Has reports whether a loaded plugin provides the command
func (h *Host) Has(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ownerLocked(name) != nil
}

func (h *Host) ownerLocked(command string) *LoadedPlugin {
	for _, lp := range h.plugins {
		for _, cmd := range lp.Info.Commands {
			if cmd.Name == command {
				return lp
			}
		}
	}
	return nil
}
