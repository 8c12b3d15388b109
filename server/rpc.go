package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/therapy/core/protocol"
	"github.com/tailored-agentic-units/therapy/identity"
	"github.com/tailored-agentic-units/therapy/observability"
)

// Connect procedure paths. Requests and responses are structpb.Struct
// messages with the fields listed on each handler.
const (
	ServiceName            = "therapy.v1.TherapistService"
	RespondProcedure       = "/" + ServiceName + "/Respond"
	CreateUserProcedure    = "/" + ServiceName + "/CreateUser"
	CreateSessionProcedure = "/" + ServiceName + "/CreateSession"
	ResumeSessionProcedure = "/" + ServiceName + "/Resume"
)

type unaryFunc func(context.Context, *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error)

func (s *Server) registerRPC(mux *http.ServeMux) {
	procedures := map[string]unaryFunc{
		RespondProcedure:       s.rpcRespond,
		CreateUserProcedure:    s.rpcCreateUser,
		CreateSessionProcedure: s.rpcCreateSession,
		ResumeSessionProcedure: s.rpcResume,
	}

	for procedure, fn := range procedures {
		mux.Handle(procedure, connect.NewUnaryHandler[structpb.Struct, structpb.Struct](procedure, s.observe(procedure, fn)))
	}
}

func (s *Server) observe(procedure string, fn unaryFunc) unaryFunc {
	return func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
		resp, err := fn(ctx, req)

		level := observability.LevelVerbose
		code := "ok"
		if err != nil {
			level = observability.LevelWarning
			code = connect.CodeOf(err).String()
		}
		s.emit(ctx, EventRPC, level, map[string]any{"procedure": procedure, "code": code})

		return resp, err
	}
}

// rpcRespond: {text, user_id, session_id} -> {reply, success, turns}.
func (s *Server) rpcRespond(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	text := field(req.Msg, "text")
	userID := field(req.Msg, "user_id")
	sessionID := field(req.Msg, "session_id")

	if strings.TrimSpace(text) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("text is required"))
	}
	if userID == "" || sessionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("user_id and session_id are required"))
	}

	result := s.respond(ctx, text, userID, sessionID)

	return reply(map[string]any{
		"reply":   result.Reply,
		"success": result.Success,
		"turns":   len(result.History),
	})
}

// rpcCreateUser: {name} -> {user_id}.
func (s *Server) rpcCreateUser(_ context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	userID, err := s.identity.CreateUser(field(req.Msg, "name"))
	if errors.Is(err, identity.ErrEmptyName) {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return reply(map[string]any{"user_id": userID})
}

// rpcCreateSession: {user_id} -> {session_id}.
func (s *Server) rpcCreateSession(_ context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	userID := s.identity.Resume(field(req.Msg, "user_id"))
	if userID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("user_id is required"))
	}
	return reply(map[string]any{"session_id": s.identity.CreateSession(userID)})
}

// rpcResume: {session_id} -> {session_id, found, messages: [{role, content}]}.
func (s *Server) rpcResume(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	sessionID := field(req.Msg, "session_id")
	if sessionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("session_id is required"))
	}

	history, found := s.backend.Resume(ctx, sessionID)

	return reply(map[string]any{
		"session_id": sessionID,
		"found":      found,
		"messages":   encodeMessages(history),
	})
}

func field(msg *structpb.Struct, key string) string {
	return msg.GetFields()[key].GetStringValue()
}

func reply(fields map[string]any) (*connect.Response[structpb.Struct], error) {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

func encodeMessages(history []protocol.Message) []any {
	out := make([]any, len(history))
	for i, msg := range history {
		out[i] = map[string]any{"role": string(msg.Role), "content": msg.Content}
	}
	return out
}

func decodeMessages(list *structpb.ListValue) []protocol.Message {
	values := list.GetValues()
	out := make([]protocol.Message, 0, len(values))
	for _, v := range values {
		fields := v.GetStructValue().GetFields()
		out = append(out, protocol.NewMessage(
			protocol.Role(fields["role"].GetStringValue()),
			fields["content"].GetStringValue(),
		))
	}
	return out
}
