// Package console implements the operator-facing interactive shell,
// grounded on the teacher's internal/repl/repl.go: a bufio line reader over
// stdin dispatching single-word commands by switch statement.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/watcherhq/wetvlo/internal/config"
	"github.com/watcherhq/wetvlo/internal/scheduler"
)

// ConfigLoader loads a Registry from path, satisfied by config.Load.
type ConfigLoader func(path string) (*config.Registry, error)

// SessionScheduler is the subset of *session.Scheduler console drives.
type SessionScheduler interface {
	Reload(reg *config.Registry)
	Trigger()
	Stop()
}

// StatsSource is the subset of *manager.Manager console reports on.
type StatsSource interface {
	Stats() map[string]any
}

// Console is the interactive command shell.
type Console struct {
	out        io.Writer
	reader     *bufio.Reader
	configPath string
	loadConfig ConfigLoader
	sched      SessionScheduler
	stats      StatsSource
	logger     *slog.Logger
	quitFunc   func()
}

// New builds a Console reading from in and writing to out. configPath is
// re-read by loadConfig on every "reload" command.
func New(in io.Reader, out io.Writer, configPath string, loadConfig ConfigLoader, sched SessionScheduler, stats StatsSource, quitFunc func(), logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{
		out:        out,
		reader:     bufio.NewReader(in),
		configPath: configPath,
		loadConfig: loadConfig,
		sched:      sched,
		stats:      stats,
		quitFunc:   quitFunc,
		logger:     logger.With("component", "console"),
	}
}

// Run reads commands until "quit", EOF, or ctx is canceled.
func (c *Console) Run(ctx context.Context) {
	fmt.Fprintln(c.out, "wetvlo interactive console — type 'help' for commands, 'quit' to exit.")

	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprint(c.out, "wetvlo> ")
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "help", "?":
			c.printHelp()
		case "reload":
			c.cmdReload()
		case "trigger":
			c.cmdTrigger()
		case "status", "stats":
			c.cmdStats()
		case "quit", "exit", "q":
			fmt.Fprintln(c.out, "shutting down...")
			if c.quitFunc != nil {
				c.quitFunc()
			}
			return
		default:
			fmt.Fprintf(c.out, "unknown command: %s (type 'help')\n", fields[0])
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, `
Available commands:
  reload    re-read and apply the configuration file
  trigger   bypass cooldowns, enqueue every series for an immediate check
  status    show per-lane scheduler state
  stats     alias for status
  quit      stop the scheduler and exit
`)
}

func (c *Console) cmdReload() {
	reg, err := c.loadConfig(c.configPath)
	if err != nil {
		fmt.Fprintf(c.out, "reload failed: %v\n", err)
		return
	}
	c.sched.Reload(reg)
	fmt.Fprintln(c.out, "configuration reloaded")
}

func (c *Console) cmdTrigger() {
	c.sched.Trigger()
	fmt.Fprintln(c.out, "triggered an immediate check for every series")
}

func (c *Console) cmdStats() {
	snapshot := c.stats.Stats()
	busy, _ := snapshot["executor_busy"].(bool)
	stopped, _ := snapshot["stopped"].(bool)
	lanes, _ := snapshot["lanes"].([]scheduler.LaneStats)

	fmt.Fprintf(c.out, "executor busy: %v   stopped: %v\n", busy, stopped)
	fmt.Fprintf(c.out, "%-40s %-8s %s\n", "LANE", "DEPTH", "EXECUTING")
	for _, lane := range lanes {
		fmt.Fprintf(c.out, "%-40s %-8d %v\n", lane.Name, lane.Depth, lane.IsExecuting)
	}
}
