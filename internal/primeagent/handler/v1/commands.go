package v1

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/command"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/event"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/eventbuffer"
	"github.com/prime-system/prime-agent/internal/primeagent/service/commandexec"
	"github.com/prime-system/prime-agent/pkg/core"
	"github.com/prime-system/prime-agent/pkg/errorx"
)

// CommandHandler handles the command-trigger and run-polling endpoints.
type CommandHandler struct {
	executor *commandexec.Executor
	runs     *command.Manager
}

func NewCommandHandler(executor *commandexec.Executor, runs *command.Manager) *CommandHandler {
	return &CommandHandler{executor: executor, runs: runs}
}

// Trigger handles POST /commands/:name/trigger.
func (h *CommandHandler) Trigger(c *gin.Context) {
	name := c.Param("name")

	runID, err := h.executor.Trigger(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, commandexec.ErrCommandNotFound) {
			core.WriteResponse(c, errorx.WrapC(err, ErrCommandNotFound, "command %q", name), nil)
			return
		}
		core.WriteResponse(c, errorx.WrapC(err, ErrCommandNotFound, "trigger command %q", name), nil)
		return
	}

	core.WriteResponse(c, nil, triggerResponse{
		RunID:   runID,
		Status:  "started",
		PollURL: fmt.Sprintf("/commands/runs/%s", runID),
	})
}

// RunStatus handles GET /commands/runs/:run_id?after=<int>. A missing
// after query parameter defaults to eventbuffer.NoCursor so event id 0 is
// never skipped (spec §6).
func (h *CommandHandler) RunStatus(c *gin.Context) {
	runID := c.Param("run_id")

	after := int64(eventbuffer.NoCursor)
	if raw := c.Query("after"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			core.WriteResponse(c, errorx.WrapC(err, ErrValidation, "parse after=%q", raw), nil)
			return
		}
		after = parsed
	}

	snap, ok := h.runs.Get(runID, after)
	if !ok {
		core.WriteResponse(c, errorx.WithCode(ErrRunNotFound, "run %q", runID), nil)
		return
	}

	// polledEvent always writes event_id, including id 0, which the
	// omitempty tag on event.Event.ID would otherwise drop.
	type polledEvent struct {
		EventID int64 `json:"event_id"`
		*event.Event
	}
	events := make([]polledEvent, 0, len(snap.Events))
	for _, ev := range snap.Events {
		events = append(events, polledEvent{EventID: ev.ID, Event: ev})
	}

	core.WriteResponse(c, nil, runStatusResponse{
		RunID:         snap.RunID,
		CommandName:   snap.CommandName,
		Status:        string(snap.Status),
		StartedAt:     snap.StartedAt,
		CompletedAt:   snap.CompletedAt,
		CostUSD:       snap.CostUSD,
		DurationMs:    snap.DurationMs,
		Error:         snap.Error,
		Events:        events,
		NextCursor:    snap.NextCursor,
		DroppedBefore: snap.DroppedBefore,
	})
}
