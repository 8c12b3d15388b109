package state

import (
	"context"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/therapy/observability"
	"github.com/tailored-agentic-units/therapy/orchestrate/config"
)

// StateGraph defines a conversation pipeline as a directed graph of nodes
// and edges.
//
// Example pipeline structure:
//
//	graph, err := state.NewGraphWithDeps(cfg, observer, store)
//	graph.AddNode("retrieve_memories", retrieve)
//	graph.AddNode("generate_reply", generate)
//	graph.AddNode("store_memories", store)
//	graph.AddEdge("retrieve_memories", "generate_reply", state.LastRoleIs(protocol.RoleUser))
//	graph.AddEdge("generate_reply", "store_memories", state.LastRoleIs(protocol.RoleAssistant))
//	graph.SetEntryPoint("retrieve_memories")
//	graph.SetExitPoint("store_memories")
//	result, err := graph.Execute(ctx, initialState)
type StateGraph interface {
	// Name returns the graph identifier for event metadata
	Name() string

	// AddNode registers a computation step in the graph
	AddNode(name string, node StateNode) error

	// AddEdge creates a transition between nodes (predicate can be nil for unconditional)
	AddEdge(from, to string, predicate TransitionPredicate) error

	// SetEntryPoint defines the starting node for execution
	SetEntryPoint(node string) error

	// SetExitPoint defines a terminal node (execution stops here)
	SetExitPoint(node string) error

	// Execute runs the graph from entry point with initial state
	Execute(ctx context.Context, initialState State) (State, error)

	// Resume continues a session from the node after its last checkpoint
	Resume(ctx context.Context, sessionID string) (State, error)
}

// stateGraph implements StateGraph interface with concrete execution engine.
type stateGraph struct {
	name                string
	nodes               map[string]StateNode
	edges               map[string][]Edge
	entryPoint          string
	exitPoints          map[string]bool
	maxIterations       int
	observer            observability.Observer
	checkpointStore     CheckpointStore
	checkpointInterval  int
	preserveCheckpoints bool
}

// Name returns the graph identifier for event metadata.
func (g *stateGraph) Name() string {
	return g.name
}

// NewGraphWithDeps creates a state graph with an explicit observer and
// checkpoint store. A nil store disables checkpointing regardless of the
// configured interval.
func NewGraphWithDeps(cfg config.GraphConfig, observer observability.Observer, checkpointStore CheckpointStore) (StateGraph, error) {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	interval := cfg.Checkpoint.Interval
	if checkpointStore == nil {
		interval = 0
	}

	return &stateGraph{
		name:                cfg.Name,
		nodes:               make(map[string]StateNode),
		edges:               make(map[string][]Edge),
		exitPoints:          make(map[string]bool),
		maxIterations:       cfg.MaxIterations,
		observer:            observer,
		checkpointStore:     checkpointStore,
		checkpointInterval:  interval,
		preserveCheckpoints: cfg.Checkpoint.Preserve(),
	}, nil
}

// AddNode registers a computation step in the graph.
//
// Nodes must have unique names. Adding a duplicate node returns an error.
func (g *stateGraph) AddNode(name string, node StateNode) error {
	if name == "" {
		return fmt.Errorf("node name cannot be empty")
	}

	if node == nil {
		return fmt.Errorf("node cannot be nil")
	}

	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("node %s already exists", name)
	}

	g.nodes[name] = node
	return nil
}

// AddEdge creates a transition between nodes.
//
// Both nodes must exist before adding an edge. Predicate can be nil for
// unconditional transitions. Multiple edges from the same node are allowed.
func (g *stateGraph) AddEdge(from, to string, predicate TransitionPredicate) error {
	if from == "" {
		return fmt.Errorf("from node cannot be empty")
	}

	if to == "" {
		return fmt.Errorf("to node cannot be empty")
	}

	if _, exists := g.nodes[from]; !exists {
		return fmt.Errorf("from node %s does not exist", from)
	}

	if _, exists := g.nodes[to]; !exists {
		return fmt.Errorf("to node %s does not exist", to)
	}

	g.edges[from] = append(g.edges[from], Edge{
		From:      from,
		To:        to,
		Predicate: predicate,
	})
	return nil
}

// SetEntryPoint defines the starting node for execution.
//
// The entry point node must exist. Only one entry point is allowed.
func (g *stateGraph) SetEntryPoint(node string) error {
	if node == "" {
		return fmt.Errorf("entry point cannot be empty")
	}

	if g.entryPoint != "" {
		return fmt.Errorf("entry point already set to %s", g.entryPoint)
	}

	if _, exists := g.nodes[node]; !exists {
		return fmt.Errorf("entry point node %s does not exist", node)
	}

	g.entryPoint = node
	return nil
}

// SetExitPoint defines a terminal node where execution stops.
//
// Multiple exit points are supported. The exit point node must exist.
func (g *stateGraph) SetExitPoint(node string) error {
	if node == "" {
		return fmt.Errorf("exit point cannot be empty")
	}

	if _, exists := g.nodes[node]; !exists {
		return fmt.Errorf("exit point node %s does not exist", node)
	}

	g.exitPoints[node] = true
	return nil
}

// Validate checks graph structure for common configuration errors.
func (g *stateGraph) Validate() error {
	if len(g.nodes) == 0 {
		return fmt.Errorf("graph has no nodes")
	}

	if g.entryPoint == "" {
		return fmt.Errorf("entry point not set")
	}

	if _, exists := g.nodes[g.entryPoint]; !exists {
		return fmt.Errorf("entry point %s does not exist", g.entryPoint)
	}

	if len(g.exitPoints) == 0 {
		return fmt.Errorf("no exit points set")
	}

	for exitPoint := range g.exitPoints {
		if _, exists := g.nodes[exitPoint]; !exists {
			return fmt.Errorf("exit point %s does not exist", exitPoint)
		}
	}

	return nil
}

// Execute runs the graph from entry point with initial state.
//
// Each node's Update is merged into the running State with State.Apply.
// When checkpointing is enabled the merged State is saved under its
// SessionID every Interval nodes. Returns ExecutionError on failure, along
// with the last successfully merged State.
func (g *stateGraph) Execute(ctx context.Context, initialState State) (State, error) {
	return g.execute(ctx, g.entryPoint, initialState)
}

// Resume continues graph execution from a saved checkpoint.
//
// Loads the checkpoint for sessionID and resumes from the node after the
// checkpoint node. Returns an error when checkpointing is disabled, the
// checkpoint is missing, or the checkpoint was taken at an exit point.
func (g *stateGraph) Resume(ctx context.Context, sessionID string) (State, error) {
	if g.checkpointStore == nil {
		return State{}, fmt.Errorf("checkpointing not enabled for this graph")
	}

	cp, err := g.checkpointStore.Load(ctx, sessionID)
	if err != nil {
		return State{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	state := FromCheckpoint(cp, g.observer)

	g.observer.OnEvent(ctx, observability.Event{
		Type:      EventCheckpointLoad,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    g.name,
		Data: map[string]any{
			"node":       cp.Node,
			"session_id": sessionID,
		},
	})

	nextNode, err := g.findNextNode(cp.Node, state)
	if err != nil {
		return State{}, fmt.Errorf("failed to find next node after checkpoint: %w", err)
	}

	g.observer.OnEvent(ctx, observability.Event{
		Type:      EventCheckpointResume,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    g.name,
		Data: map[string]any{
			"checkpoint_node": cp.Node,
			"resume_node":     nextNode,
			"session_id":      sessionID,
		},
	})

	return g.execute(ctx, nextNode, state)
}

func (g *stateGraph) execute(ctx context.Context, startNode string, initialState State) (State, error) {
	if err := g.Validate(); err != nil {
		return initialState, fmt.Errorf("graph validation failed: %w", err)
	}

	g.observer.OnEvent(ctx, observability.Event{
		Type:      EventGraphStart,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    g.name,
		Data: map[string]any{
			"entry_point":  startNode,
			"run_id":       initialState.RunID,
			"session_id":   initialState.SessionID,
			"messages":     len(initialState.Messages),
			"checkpointed": g.checkpointInterval > 0,
		},
	})

	current := startNode
	state := initialState
	iterations := 0
	visited := make(map[string]int)
	path := make([]string, 0, len(g.nodes))

	for {
		if err := ctx.Err(); err != nil {
			return state, &ExecutionError{
				NodeName: current,
				State:    state,
				Path:     path,
				Err:      fmt.Errorf("execution cancelled: %w", err),
			}
		}

		iterations++
		if iterations > g.maxIterations {
			return state, &ExecutionError{
				NodeName: current,
				State:    state,
				Path:     path,
				Err:      fmt.Errorf("max iterations (%d) exceeded", g.maxIterations),
			}
		}

		visited[current]++
		path = append(path, current)

		if visited[current] > 1 {
			g.observer.OnEvent(ctx, observability.Event{
				Type:      EventCycleDetected,
				Level:     observability.LevelWarning,
				Timestamp: time.Now(),
				Source:    g.name,
				Data: map[string]any{
					"node":        current,
					"visit_count": visited[current],
					"iteration":   iterations,
				},
			})
		}

		node, exists := g.nodes[current]
		if !exists {
			return state, &ExecutionError{
				NodeName: current,
				State:    state,
				Path:     path,
				Err:      fmt.Errorf("node %s not found", current),
			}
		}

		g.observer.OnEvent(ctx, observability.Event{
			Type:      EventNodeStart,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    g.name,
			Data: map[string]any{
				"node":      current,
				"iteration": iterations,
				"messages":  len(state.Messages),
			},
		})

		update, err := node.Execute(ctx, state)

		g.observer.OnEvent(ctx, observability.Event{
			Type:      EventNodeComplete,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    g.name,
			Data: map[string]any{
				"node":            current,
				"iteration":       iterations,
				"error":           err != nil,
				"update_messages": len(update.Messages),
				"update_context":  len(update.Context),
			},
		})

		if err != nil {
			return state, &ExecutionError{
				NodeName: current,
				State:    state,
				Path:     path,
				Err:      fmt.Errorf("node execution failed: %w", err),
			}
		}

		state = state.Apply(update).SetCheckpointNode(current)

		if g.checkpointInterval > 0 && iterations%g.checkpointInterval == 0 {
			// A failed save costs durability only; the run continues.
			if err := state.Save(ctx, g.checkpointStore); err != nil {
				g.observer.OnEvent(ctx, observability.Event{
					Type:      EventCheckpointError,
					Level:     observability.LevelWarning,
					Timestamp: time.Now(),
					Source:    g.name,
					Data: map[string]any{
						"node":       current,
						"session_id": state.SessionID,
						"error":      err.Error(),
					},
				})
			} else {
				g.observer.OnEvent(ctx, observability.Event{
					Type:      EventCheckpointSave,
					Level:     observability.LevelVerbose,
					Timestamp: time.Now(),
					Source:    g.name,
					Data: map[string]any{
						"node":       current,
						"session_id": state.SessionID,
						"messages":   len(state.Messages),
					},
				})
			}
		}

		if g.exitPoints[current] {
			g.observer.OnEvent(ctx, observability.Event{
				Type:      EventGraphComplete,
				Level:     observability.LevelInfo,
				Timestamp: time.Now(),
				Source:    g.name,
				Data: map[string]any{
					"exit_point":  current,
					"iterations":  iterations,
					"path_length": len(path),
					"messages":    len(state.Messages),
				},
			})

			if !g.preserveCheckpoints && g.checkpointInterval > 0 {
				g.checkpointStore.Delete(ctx, state.SessionID)
			}

			return state, nil
		}

		edges, hasEdges := g.edges[current]
		if !hasEdges {
			return state, &ExecutionError{
				NodeName: current,
				State:    state,
				Path:     path,
				Err:      fmt.Errorf("node %s has no outgoing edges and is not an exit point", current),
			}
		}

		nextNode := ""
		for i, edge := range edges {
			g.observer.OnEvent(ctx, observability.Event{
				Type:      EventEdgeEvaluate,
				Level:     observability.LevelVerbose,
				Timestamp: time.Now(),
				Source:    g.name,
				Data: map[string]any{
					"from":          edge.From,
					"to":            edge.To,
					"edge_index":    i,
					"has_predicate": edge.Predicate != nil,
				},
			})

			if edge.Predicate == nil || edge.Predicate(state) {
				nextNode = edge.To

				g.observer.OnEvent(ctx, observability.Event{
					Type:      EventEdgeTransition,
					Level:     observability.LevelVerbose,
					Timestamp: time.Now(),
					Source:    g.name,
					Data: map[string]any{
						"from":           edge.From,
						"to":             edge.To,
						"edge_index":     i,
						"predicate_name": edge.Name,
					},
				})

				break
			}
		}

		if nextNode == "" {
			return state, &ExecutionError{
				NodeName: current,
				State:    state,
				Path:     path,
				Err:      fmt.Errorf("no valid transition from node %s", current),
			}
		}

		current = nextNode
	}
}

// findNextNode determines the next node to execute from a checkpoint by
// evaluating the outgoing edges of fromNode against the restored State.
func (g *stateGraph) findNextNode(fromNode string, state State) (string, error) {
	edges, hasEdges := g.edges[fromNode]
	if !hasEdges {
		if g.exitPoints[fromNode] {
			return "", fmt.Errorf("checkpoint was at exit point, execution already complete")
		}
		return "", fmt.Errorf("no outgoing edges from checkpoint node: %s", fromNode)
	}

	for i := range edges {
		edge := &edges[i]
		if edge.Predicate == nil || edge.Predicate(state) {
			return edge.To, nil
		}
	}

	return "", fmt.Errorf("no valid edge transition from checkpoint node: %s", fromNode)
}
