package server

import "github.com/tailored-agentic-units/therapy/observability"

// Server event types.
const (
	EventListen      observability.EventType = "server.listen"
	EventRPC         observability.EventType = "server.rpc"
	EventSocketOpen  observability.EventType = "server.ws.open"
	EventSocketClose observability.EventType = "server.ws.close"
	EventSocketError observability.EventType = "server.ws.error"
)
