package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/watcherhq/wetvlo/internal/config"
	"github.com/watcherhq/wetvlo/internal/scheduler"
)

type fakeScheduler struct {
	reloaded  bool
	triggered bool
	stopped   bool
}

func (f *fakeScheduler) Reload(*config.Registry) { f.reloaded = true }
func (f *fakeScheduler) Trigger()                { f.triggered = true }
func (f *fakeScheduler) Stop()                   { f.stopped = true }

type fakeStats struct{}

func (fakeStats) Stats() map[string]any {
	return map[string]any{
		"executor_busy": true,
		"stopped":       false,
		"lanes": []scheduler.LaneStats{
			{Name: "check:example.com:abc123def456", Depth: 2, IsExecuting: false},
			{Name: "download:example.com", Depth: 1, IsExecuting: true},
		},
	}
}

func TestConsoleTriggerCommand(t *testing.T) {
	sched := &fakeScheduler{}
	var out bytes.Buffer
	c := New(strings.NewReader("trigger\nquit\n"), &out, "", nil, sched, fakeStats{}, nil, nil)
	c.Run(context.Background())

	if !sched.triggered {
		t.Error("expected trigger command to call Scheduler.Trigger")
	}
}

func TestConsoleReloadCommand(t *testing.T) {
	sched := &fakeScheduler{}
	loader := func(path string) (*config.Registry, error) {
		if path != "cfg.yaml" {
			t.Errorf("loadConfig called with %q, want cfg.yaml", path)
		}
		return &config.Registry{}, nil
	}
	var out bytes.Buffer
	c := New(strings.NewReader("reload\nquit\n"), &out, "cfg.yaml", loader, sched, fakeStats{}, nil, nil)
	c.Run(context.Background())

	if !sched.reloaded {
		t.Error("expected reload command to call Scheduler.Reload")
	}
}

func TestConsoleQuitInvokesQuitFunc(t *testing.T) {
	var quit bool
	var out bytes.Buffer
	c := New(strings.NewReader("quit\n"), &out, "", nil, &fakeScheduler{}, fakeStats{}, func() { quit = true }, nil)
	c.Run(context.Background())

	if !quit {
		t.Error("expected quit command to invoke quitFunc")
	}
}

func TestConsoleStatsPrintsLanes(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("stats\nquit\n"), &out, "", nil, &fakeScheduler{}, fakeStats{}, nil, nil)
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "check:example.com:abc123def456") {
		t.Errorf("expected output to list lane names, got: %s", output)
	}
	if !strings.Contains(output, "download:example.com") {
		t.Errorf("expected output to list the download lane, got: %s", output)
	}
}

func TestConsoleUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("bogus\nquit\n"), &out, "", nil, &fakeScheduler{}, fakeStats{}, nil, nil)
	c.Run(context.Background())

	if !strings.Contains(out.String(), "unknown command") {
		t.Errorf("expected an unknown-command message, got: %s", out.String())
	}
}
