package server

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/therapy/core/protocol"
)

// Client calls a Server's Connect procedures.
type Client struct {
	respond       *connect.Client[structpb.Struct, structpb.Struct]
	createUser    *connect.Client[structpb.Struct, structpb.Struct]
	createSession *connect.Client[structpb.Struct, structpb.Struct]
	resume        *connect.Client[structpb.Struct, structpb.Struct]
}

// NewClient creates a Client for the server at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		respond:       connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+RespondProcedure, opts...),
		createUser:    connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+CreateUserProcedure, opts...),
		createSession: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+CreateSessionProcedure, opts...),
		resume:        connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ResumeSessionProcedure, opts...),
	}
}

// Respond sends one user turn and returns the reply and success flag.
func (c *Client) Respond(ctx context.Context, text, userID, sessionID string) (string, bool, error) {
	resp, err := call(ctx, c.respond, map[string]any{
		"text":       text,
		"user_id":    userID,
		"session_id": sessionID,
	})
	if err != nil {
		return "", false, err
	}
	return field(resp, "reply"), resp.GetFields()["success"].GetBoolValue(), nil
}

// CreateUser registers a display name and returns the user id.
func (c *Client) CreateUser(ctx context.Context, name string) (string, error) {
	resp, err := call(ctx, c.createUser, map[string]any{"name": name})
	if err != nil {
		return "", err
	}
	return field(resp, "user_id"), nil
}

// CreateSession starts a session for userID.
func (c *Client) CreateSession(ctx context.Context, userID string) (string, error) {
	resp, err := call(ctx, c.createSession, map[string]any{"user_id": userID})
	if err != nil {
		return "", err
	}
	return field(resp, "session_id"), nil
}

// Resume fetches the persisted history of sessionID.
func (c *Client) Resume(ctx context.Context, sessionID string) ([]protocol.Message, bool, error) {
	resp, err := call(ctx, c.resume, map[string]any{"session_id": sessionID})
	if err != nil {
		return nil, false, err
	}
	fields := resp.GetFields()
	return decodeMessages(fields["messages"].GetListValue()), fields["found"].GetBoolValue(), nil
}

func call(ctx context.Context, client *connect.Client[structpb.Struct, structpb.Struct], fields map[string]any) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
