package termadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// kittyTerm drives kitty's remote-control protocol (`kitty @ <verb>`),
// rate-limited and timed out exactly the way the teacher's
// internal/wezterm/ops.go rate-limits `wezterm cli <verb>` invocations —
// both tools expose a near-identical pane-oriented CLI control surface.
type kittyTerm struct {
	mu             sync.Mutex
	lastOp         time.Time
	minOpInterval  time.Duration
	commandTimeout time.Duration
}

// NewKitty returns the Kitty-class terminal adapter.
func NewKitty() Adapter {
	return &kittyTerm{
		minOpInterval:  200 * time.Millisecond,
		commandTimeout: 10 * time.Second,
	}
}

func (k *kittyTerm) Kind() string { return "kitty" }

func (k *kittyTerm) waitForInterval() {
	elapsed := time.Since(k.lastOp)
	if elapsed < k.minOpInterval {
		time.Sleep(k.minOpInterval - elapsed)
	}
	k.lastOp = time.Now()
}

func (k *kittyTerm) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, k.commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "kitty", args...)
	output, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("kitty command timed out after %v", k.commandTimeout)
	}
	return output, err
}

func (k *kittyTerm) Spawn(ctx context.Context, directory string, argv []string) (Handle, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.waitForInterval()

	args := []string{"@", "launch", "--type", "os-window", "--cwd", directory}
	args = append(args, argv...)

	log.Printf("[TERMADAPTER] kitty: launching window in %s", directory)
	output, err := k.run(ctx, args...)
	if err != nil {
		return Handle{}, fmt.Errorf("spawn failed: %w (output: %s)", err, string(output))
	}

	windowID := strings.TrimSpace(string(output))
	return Handle{WindowID: windowID}, nil
}

func (k *kittyTerm) IsAlive(ctx context.Context, h Handle) Liveness {
	k.mu.Lock()
	defer k.mu.Unlock()

	output, err := k.run(ctx, "@", "ls", "--match", "id:"+h.WindowID)
	if err != nil {
		return Unknown
	}

	var windows []map[string]any
	if err := json.Unmarshal(output, &windows); err != nil {
		return Unknown
	}
	if len(windows) == 0 {
		return Dead
	}
	return Alive
}

func (k *kittyTerm) Close(ctx context.Context, h Handle) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.waitForInterval()

	if h.WindowID == "" {
		return nil
	}
	_, err := k.run(ctx, "@", "close-window", "--match", "id:"+h.WindowID)
	if err != nil {
		log.Printf("[TERMADAPTER] kitty: close-window %s failed (idempotent, ignoring): %v", h.WindowID, err)
		return nil
	}
	return nil
}
