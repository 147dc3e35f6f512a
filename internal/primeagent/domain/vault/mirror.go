package vault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prime-system/prime-agent/pkg/logger"
	"github.com/prime-system/prime-agent/pkg/utils/atomicfile"
)

const moduleName = "vault"

// CommandRunMeta is the subset of a Command Run the Mirror Coordinator
// needs to write its log entry; it does not import the command package, so
// vault stays independent of the Command Run Manager and callers convert
// their run records into this shape.
type CommandRunMeta struct {
	RunID       string
	CommandName string
	Scheduled   bool
	Status      string
	StartedAt   time.Time
	CompletedAt time.Time
	CostUSD     *float64
	DurationMs  *int64
	Error       string
}

// MirrorError aggregates every failure observed during a sync_command_run
// call. It is returned after the routine has made its best effort through
// every step; a non-nil MirrorError never rolls back prior steps.
type MirrorError struct {
	Failures []string
}

func (e *MirrorError) Error() string {
	return fmt.Sprintf("vault mirror sync had %d failure(s): %s", len(e.Failures), strings.Join(e.Failures, "; "))
}

// Coordinator is the single sequencer for all vault-mutating operations.
// Every entry point acquires the Vault Mutex before touching the working
// tree.
type Coordinator struct {
	mu        *Mutex
	git       *GitClient
	vaultPath string
	logsDir   string
	enabled   bool
}

func NewCoordinator(mu *Mutex, git *GitClient, vaultPath, logsDir string, enabled bool) *Coordinator {
	return &Coordinator{mu: mu, git: git, vaultPath: vaultPath, logsDir: logsDir, enabled: enabled}
}

func (c *Coordinator) Enabled() bool { return c.enabled }

// MutexHeld reports whether the vault mutex is currently locked, for the
// background-tasks monitoring endpoint.
func (c *Coordinator) MutexHeld() bool { return c.mu.Held() }

// SyncCapture stages, commits, and pushes a single capture file. No-op
// when the mirror is disabled.
func (c *Coordinator) SyncCapture(ctx context.Context, captureFile string) error {
	if !c.enabled {
		return nil
	}
	if err := c.mu.Lock(ctx); err != nil {
		return err
	}
	defer c.mu.Unlock()

	rel, err := c.git.RelPath(captureFile)
	if err != nil {
		rel = captureFile
	}
	message := fmt.Sprintf("Agent: Auto-commit at %s", time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))
	if _, err := c.git.Commit(ctx, message, []string{rel}); err != nil {
		return fmt.Errorf("capture commit: %w", err)
	}
	if err := c.git.Push(ctx); err != nil {
		return fmt.Errorf("capture push: %w", err)
	}
	return nil
}

// pullStatus is one of the three sub-statuses recorded in the command-run
// log's Git Sync section.
type pullStatus struct {
	status string // success|failed|skipped
	err    error
}

// SyncCommandRun runs the full pull → commit → log → push sequence for a
// completed command run. It always attempts every step; failures are
// collected rather than short-circuiting, and a single aggregated
// *MirrorError is returned at the end if any step failed.
func (c *Coordinator) SyncCommandRun(ctx context.Context, meta CommandRunMeta) error {
	if !c.enabled {
		return nil
	}
	if err := c.mu.Lock(ctx); err != nil {
		return err
	}
	defer c.mu.Unlock()

	var failures []string

	// 1. Pull.
	pull := pullStatus{status: "success"}
	if err := c.git.Pull(ctx); err != nil {
		pull = pullStatus{status: "failed", err: err}
		failures = append(failures, fmt.Sprintf("pull: %v", err))
		logger.ErrorX(moduleName, "pull failed for run %s: %v", meta.RunID, err)
	}

	// 2. Commit changed files.
	changed, err := c.git.ChangedFiles(ctx)
	if err != nil {
		failures = append(failures, fmt.Sprintf("status: %v", err))
		logger.ErrorX(moduleName, "status failed for run %s: %v", meta.RunID, err)
	}

	commitHash := ""
	if len(changed) > 0 {
		scheduledWord := "manual"
		if meta.Scheduled {
			scheduledWord = "scheduled"
		}
		msg := fmt.Sprintf("Command: %s (%s) at %s [run_id=%s]",
			meta.CommandName, scheduledWord, time.Now().UTC().Format("2006-01-02 15:04:05 UTC"), meta.RunID)
		hash, err := c.git.Commit(ctx, msg, changed)
		if err != nil {
			failures = append(failures, fmt.Sprintf("commit: %v", err))
			logger.ErrorX(moduleName, "commit failed for run %s: %v", meta.RunID, err)
		}
		commitHash = hash
	}

	// 3. Write the human-readable log file.
	logPath, logWritten := "", false
	if c.logsDir != "" {
		p, err := c.writeRunLog(meta, pull, commitHash, len(changed))
		if err != nil {
			failures = append(failures, fmt.Sprintf("log write: %v", err))
			logger.ErrorX(moduleName, "log write failed for run %s: %v", meta.RunID, err)
		} else {
			logPath = p
			logWritten = true
		}
	}

	// 4. Commit the log file, if written.
	if logWritten {
		rel, err := c.git.RelPath(logPath)
		if err != nil {
			rel = logPath
		}
		msg := fmt.Sprintf("Command log: %s (%s)", meta.CommandName, meta.RunID)
		if _, err := c.git.Commit(ctx, msg, []string{rel}); err != nil {
			failures = append(failures, fmt.Sprintf("log commit: %v", err))
			logger.ErrorX(moduleName, "log commit failed for run %s: %v", meta.RunID, err)
		}
	}

	// 5. Push once, combining every commit made above.
	if err := c.git.Push(ctx); err != nil {
		failures = append(failures, fmt.Sprintf("push: %v", err))
		logger.ErrorX(moduleName, "push failed for run %s: %v", meta.RunID, err)
	}

	if len(failures) > 0 {
		return &MirrorError{Failures: failures}
	}
	return nil
}

func (c *Coordinator) writeRunLog(meta CommandRunMeta, pull pullStatus, commitHash string, changedCount int) (string, error) {
	if err := os.MkdirAll(c.logsDir, 0o755); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Command: %s\n", meta.CommandName)
	fmt.Fprintf(&b, "Status: %s\n", meta.Status)
	fmt.Fprintf(&b, "Run ID: %s\n", meta.RunID)
	fmt.Fprintf(&b, "Scheduled: %t\n", meta.Scheduled)
	duration, cost, errText := "n/a", "n/a", "none"
	if !meta.CompletedAt.IsZero() && !meta.StartedAt.IsZero() {
		duration = fmt.Sprintf("%.2f", meta.CompletedAt.Sub(meta.StartedAt).Seconds())
	}
	if meta.CostUSD != nil {
		cost = fmt.Sprintf("%.4f", *meta.CostUSD)
	}
	if meta.Error != "" {
		errText = meta.Error
	}
	fmt.Fprintf(&b, "Duration (s): %s\n", duration)
	fmt.Fprintf(&b, "Cost (USD): %s\n", cost)
	fmt.Fprintf(&b, "Error: %s\n", errText)
	b.WriteString("Git Sync\n")
	fmt.Fprintf(&b, "  Pull: %s\n", pull.status)
	if pull.err != nil {
		fmt.Fprintf(&b, "  Pull Error: %v\n", pull.err)
	}
	if commitHash != "" {
		fmt.Fprintf(&b, "  Commit: %s\n", commitHash)
	}
	fmt.Fprintf(&b, "Changed Files: %d\n", changedCount)

	path := filepath.Join(c.logsDir, fmt.Sprintf("%s-%s.md", time.Now().UTC().Format("20060102T150405Z"), meta.RunID))
	if err := atomicfile.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// PullLoop runs a periodic pull in the background at a fixed cadence,
// acquiring the Vault Mutex on each tick. It never propagates an error to
// its spawner: failures are logged and the loop continues.
func (c *Coordinator) PullLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 300 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.enabled {
				continue
			}
			if err := c.mu.Lock(ctx); err != nil {
				return
			}
			if err := c.git.Pull(ctx); err != nil {
				logger.WarnX(moduleName, "periodic pull failed: %v", err)
			}
			c.mu.Unlock()
		}
	}
}
