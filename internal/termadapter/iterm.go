package termadapter

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// itermTerm drives iTerm2 through osascript/AppleScript. The teacher's pack
// has no macOS terminal-automation file to ground this on (it targets
// Windows + WezTerm exclusively); this variant is shaped after the same
// rate-limited-singleton pattern used by the Kitty-class and
// Windows-Terminal-class adapters so all three present one uniform
// concurrency discipline to the Session Manager.
type itermTerm struct {
	mu            sync.Mutex
	lastOp        time.Time
	minOpInterval time.Duration
	cmdTimeout    time.Duration
}

// NewITerm returns the iTerm-class terminal adapter.
func NewITerm() Adapter {
	return &itermTerm{
		minOpInterval: 200 * time.Millisecond,
		cmdTimeout:    10 * time.Second,
	}
}

func (it *itermTerm) Kind() string { return "iterm" }

func (it *itermTerm) waitForInterval() {
	elapsed := time.Since(it.lastOp)
	if elapsed < it.minOpInterval {
		time.Sleep(it.minOpInterval - elapsed)
	}
	it.lastOp = time.Now()
}

func (it *itermTerm) osascript(ctx context.Context, script string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, it.cmdTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("osascript timed out after %v", it.cmdTimeout)
	}
	return strings.TrimSpace(string(out)), err
}

func (it *itermTerm) Spawn(ctx context.Context, directory string, argv []string) (Handle, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.waitForInterval()

	shellCmd := strings.Join(quoteArgs(argv), " ")
	script := fmt.Sprintf(`
tell application "iTerm"
	set newWindow to (create window with default profile)
	tell current session of newWindow
		write text "cd %s && %s"
	end tell
	return id of newWindow
end tell`, shellQuote(directory), shellCmd)

	log.Printf("[TERMADAPTER] iterm: launching window in %s", directory)
	out, err := it.osascript(ctx, script)
	if err != nil {
		return Handle{}, fmt.Errorf("spawn failed: %w (output: %s)", err, out)
	}
	return Handle{WindowID: out}, nil
}

func (it *itermTerm) IsAlive(ctx context.Context, h Handle) Liveness {
	it.mu.Lock()
	defer it.mu.Unlock()

	script := fmt.Sprintf(`
tell application "iTerm"
	return (exists window id %s)
end tell`, h.WindowID)

	out, err := it.osascript(ctx, script)
	if err != nil {
		return Unknown
	}
	if out == "true" {
		return Alive
	}
	return Dead
}

func (it *itermTerm) Close(ctx context.Context, h Handle) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.waitForInterval()

	if h.WindowID == "" {
		return nil
	}
	script := fmt.Sprintf(`
tell application "iTerm"
	if (exists window id %s) then close window id %s
end tell`, h.WindowID, h.WindowID)

	if _, err := it.osascript(ctx, script); err != nil {
		log.Printf("[TERMADAPTER] iterm: close window %s failed (idempotent, ignoring): %v", h.WindowID, err)
	}
	return nil
}

func shellQuote(s string) string {
	return strconv.Quote(s)
}

func quoteArgs(argv []string) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = shellQuote(a)
	}
	return out
}
