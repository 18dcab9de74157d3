package notify

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var emoji = map[Level]string{
	Debug:     "🔍",
	Info:      "ℹ️",
	Success:   "✅",
	Highlight: "⭐",
	Warning:   "⚠️",
	Error:     "❌",
}

// ConsoleNotifier prints notifications to a writer (stdout by default),
// filtering out anything below its threshold level — the console register
// of the teacher's REPL and CLI output.
type ConsoleNotifier struct {
	mu        sync.Mutex
	out       io.Writer
	threshold Level
	now       func() time.Time
}

// NewConsoleNotifier builds a ConsoleNotifier writing to stdout. threshold
// is the minimum level printed (e.g. Debug when --debug is set, Info
// otherwise).
func NewConsoleNotifier(threshold Level) *ConsoleNotifier {
	return &ConsoleNotifier{out: os.Stdout, threshold: threshold, now: time.Now}
}

func (c *ConsoleNotifier) Notify(level Level, message string) {
	if level < c.threshold {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "%s [%s] %s\n", emoji[level], c.now().Format("15:04:05"), message)
}

var _ Notifier = (*ConsoleNotifier)(nil)
