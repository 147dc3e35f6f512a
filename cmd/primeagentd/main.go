// Command primeagentd runs the agent session and command-run coordinator
// described by this repository: chat sessions over WebSocket, command
// runs driven through the same SDK, vault mirroring, capture ingestion,
// and outbound push fan-out, all behind one HTTP/WS listener.
package main

import (
	"github.com/prime-system/prime-agent/internal/primeagent"
)

func main() {
	primeagent.NewApp("primeagentd").Run()
}
