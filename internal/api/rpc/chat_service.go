// Package rpc exposes the assistant over Connect RPC, mirroring the HTTP
// chat endpoint for clients that prefer a typed procedure call.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/chat"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
)

// ChatProcedure is the mount path of the chat procedure.
const ChatProcedure = "/convosage.v1.ChatService/Chat"

// maxMessageLength bounds a single chat message.
const maxMessageLength = 2000

// ChatService implements the Connect chat service.
type ChatService struct {
	logger     *observability.Logger
	dispatcher *chat.Dispatcher
}

// NewChatService creates a new chat service.
func NewChatService(dispatcher *chat.Dispatcher, logger *observability.Logger) *ChatService {
	return &ChatService{
		logger:     logger,
		dispatcher: dispatcher,
	}
}

// ChatRequest is the Connect request message.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the Connect response message.
type ChatResponse struct {
	Response     string `json:"response"`
	Tool         string `json:"tool"`
	SessionID    string `json:"session_id"`
	MessageCount int    `json:"message_count"`
}

// Chat handles one conversational exchange.
func (s *ChatService) Chat(ctx context.Context, req *connect.Request[ChatRequest]) (*connect.Response[ChatResponse], error) {
	msg := req.Msg

	if strings.TrimSpace(msg.Message) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("message is required"))
	}
	if len(msg.Message) > maxMessageLength {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("message exceeds 2000 characters"))
	}

	reply := s.dispatcher.Dispatch(ctx, msg.SessionID, msg.Message)

	s.logger.Debug().
		Str("session_id", reply.SessionID).
		Str("tool", string(reply.Tool)).
		Msg("Handled connect chat call")

	return connect.NewResponse(&ChatResponse{
		Response:     reply.Text,
		Tool:         string(reply.Tool),
		SessionID:    reply.SessionID,
		MessageCount: reply.MessageCount,
	}), nil
}

// Handler returns the procedure path and handler to mount on a router.
func (s *ChatService) Handler() (string, http.Handler) {
	return ChatProcedure, connect.NewUnaryHandler(ChatProcedure, s.Chat, Codec())
}

// Codec returns the option that makes both sides speak plain JSON. The
// messages are hand-written structs rather than generated types, so the
// default proto codecs cannot serialize them.
func Codec() connect.Option {
	return connect.WithCodec(jsonCodec{})
}

// jsonCodec marshals procedure messages with encoding/json. Registering it
// under the name json replaces the proto-backed JSON codec for this handler.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(message interface{}) ([]byte, error) {
	return json.Marshal(message)
}

func (jsonCodec) Unmarshal(data []byte, message interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, message)
}
