// Package commandexec implements the Command Run Manager's execution
// protocol (spec §4.4): the API boundary's responsibility, not the
// manager's. It wires command.Manager, runner.Runner, vault.Coordinator,
// and the audit store together for a single named-command invocation.
package commandexec

import (
	"context"
	"io"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/command"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/event"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/runner"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/vault"
	"github.com/prime-system/prime-agent/internal/primeagent/store/boltdb"
	"github.com/prime-system/prime-agent/pkg/logger"
	"github.com/prime-system/prime-agent/pkg/utils/safego"
)

const moduleName = "commandexec"

// Executor drives a named command from the vault's .claude/commands
// directory through the Agent Runner, recording its lifecycle in the
// Command Run Manager, the Vault Mirror Coordinator, and the audit store.
type Executor struct {
	commandsDir string
	runs        *command.Manager
	runner      *runner.Runner
	coordinator *vault.Coordinator
	runStore    *boltdb.RunStore // optional: nil disables audit persistence
}

func NewExecutor(commandsDir string, runs *command.Manager, r *runner.Runner, coordinator *vault.Coordinator, runStore *boltdb.RunStore) *Executor {
	return &Executor{
		commandsDir: commandsDir,
		runs:        runs,
		runner:      r,
		coordinator: coordinator,
		runStore:    runStore,
	}
}

// Trigger loads commandName's prompt, creates a Command Run, and launches
// its driving task in the background. It returns the run_id immediately;
// ErrCommandNotFound means no markdown file matches commandName.
func (x *Executor) Trigger(ctx context.Context, commandName string) (string, error) {
	prompt, err := loadPrompt(x.commandsDir, commandName)
	if err != nil {
		return "", err
	}

	runID := x.runs.Create(commandName)

	taskCtx, cancel := context.WithCancel(context.Background())
	x.runs.AttachTask(runID, cancel)

	safego.Go(taskCtx, func() {
		x.drive(taskCtx, runID, commandName, prompt)
	})

	return runID, nil
}

// drive is the async task the execution protocol describes: stream the
// run, set terminal status, sync the vault, write the audit record.
// Failures in the last two steps are logged but never change run status.
func (x *Executor) drive(ctx context.Context, runID, commandName, prompt string) {
	x.runs.SetStatus(runID, command.StatusRunning, command.SetStatusOpts{})

	sr := x.runner.Run(ctx, prompt, runner.Options{})
	defer sr.Close()

	for {
		ev, err := sr.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.ErrorX(moduleName, "run %s: stream error: %v", runID, err)
			x.runs.AppendEvent(runID, event.Err(err.Error(), true))
			x.runs.SetStatus(runID, command.StatusError, command.SetStatusOpts{Error: err.Error()})
			break
		}

		x.runs.AppendEvent(runID, ev)
		if ev.IsTerminal() {
			x.applyTerminalStatus(runID, ev)
			break
		}
	}

	snapshot, ok := x.runs.Get(runID, -1)
	if !ok {
		logger.WarnX(moduleName, "run %s: vanished before post-run sync", runID)
		return
	}

	x.syncVault(ctx, snapshot)
	x.writeAudit(snapshot)
}

func (x *Executor) applyTerminalStatus(runID string, ev *event.Event) {
	switch ev.Type {
	case event.TypeComplete:
		x.runs.SetStatus(runID, command.StatusCompleted, command.SetStatusOpts{
			CostUSD:    ev.CostUSD,
			DurationMs: ev.DurationMs,
		})
	case event.TypeError:
		x.runs.SetStatus(runID, command.StatusError, command.SetStatusOpts{Error: ev.Error})
	}
}

func (x *Executor) syncVault(ctx context.Context, snap command.Snapshot) {
	if x.coordinator == nil || !x.coordinator.Enabled() {
		return
	}

	meta := vault.CommandRunMeta{
		RunID:       snap.RunID,
		CommandName: snap.CommandName,
		Status:      string(snap.Status),
		StartedAt:   snap.StartedAt,
		CostUSD:     snap.CostUSD,
		DurationMs:  snap.DurationMs,
		Error:       snap.Error,
	}
	if snap.CompletedAt != nil {
		meta.CompletedAt = *snap.CompletedAt
	}

	if err := x.coordinator.SyncCommandRun(ctx, meta); err != nil {
		logger.ErrorX(moduleName, "run %s: vault sync failed: %v", snap.RunID, err)
	}
}

func (x *Executor) writeAudit(snap command.Snapshot) {
	if x.runStore == nil {
		return
	}

	rec := boltdb.RunRecord{
		RunID:       snap.RunID,
		CommandName: snap.CommandName,
		Status:      string(snap.Status),
		StartedAt:   snap.StartedAt,
		CompletedAt: snap.CompletedAt,
		CostUSD:     snap.CostUSD,
		DurationMs:  snap.DurationMs,
		Error:       snap.Error,
	}
	if err := x.runStore.Put(rec); err != nil {
		logger.ErrorX(moduleName, "run %s: audit write failed: %v", snap.RunID, err)
	}
}
