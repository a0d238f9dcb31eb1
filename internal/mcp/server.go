package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devricklin/echo-relay/internal/biz/domain"
)

const defaultLogLimit = 20

// Server exposes the dashboard API as MCP tools
type Server struct {
	server *mcpsdk.Server
	client *Client
	log    *slog.Logger
}

// NewServer creates a new relay MCP server
func NewServer(client *Client, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		server: mcpsdk.NewServer(&mcpsdk.Implementation{
			Name:    "echo-relay",
			Version: version,
		}, nil),
		client: client,
		log:    logger.With("component", "mcp"),
	}
	s.registerTools()
	return s
}

// registerTools registers all relay MCP tools
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "relay_classify",
		Description: "Judge whether a message is relevant to a group topic. Returns isRelevant and a short reason.",
	}, s.handleClassify)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "relay_send_message",
		Description: "Send an operator message. It is forwarded to the destination group without classification.",
	}, s.handleSendMessage)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "relay_set_topic",
		Description: "Change the topic the relay filters messages against.",
	}, s.handleSetTopic)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "relay_get_log",
		Description: "Get recent routing decisions from the activity log, most recent first.",
	}, s.handleGetLog)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "relay_get_feed",
		Description: "Get recent messages from the source or forwarded feed, most recent first.",
	}, s.handleGetFeed)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "relay_get_state",
		Description: "Get the current topic, connection states and feed counts.",
	}, s.handleGetState)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "relay_toggle_connection",
		Description: "Connect or disconnect the source or destination group. Messages flow only when both are connected.",
	}, s.handleToggleConnection)
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("Starting MCP server on stdio")
	return s.server.Run(ctx, &mcpsdk.StdioTransport{})
}

// SDKServer returns the underlying MCP server
func (s *Server) SDKServer() *mcpsdk.Server {
	return s.server
}

// ClassifyInput is the input for relay_classify
type ClassifyInput struct {
	Message string `json:"message" jsonschema:"The message text to judge"`
	Topic   string `json:"topic" jsonschema:"The topic of the destination group"`
}

// ClassifyOutput is the output for relay_classify
type ClassifyOutput struct {
	IsRelevant bool   `json:"isRelevant"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (s *Server) handleClassify(ctx context.Context, req *mcpsdk.CallToolRequest, input ClassifyInput) (*mcpsdk.CallToolResult, ClassifyOutput, error) {
	result, err := s.client.Classify(ctx, input.Message, input.Topic)
	if err != nil {
		return nil, ClassifyOutput{Error: err.Error()}, nil
	}
	return nil, ClassifyOutput{IsRelevant: result.IsRelevant, Reason: result.Reason}, nil
}

// SendMessageInput is the input for relay_send_message
type SendMessageInput struct {
	Text string `json:"text" jsonschema:"The message text to send"`
}

// SendMessageOutput is the output for relay_send_message
type SendMessageOutput struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleSendMessage(ctx context.Context, req *mcpsdk.CallToolRequest, input SendMessageInput) (*mcpsdk.CallToolResult, SendMessageOutput, error) {
	msg, err := s.client.SendMessage(ctx, input.Text)
	if err != nil {
		return nil, SendMessageOutput{Success: false, Error: err.Error()}, nil
	}
	return nil, SendMessageOutput{Success: true, ID: msg.ID}, nil
}

// SetTopicInput is the input for relay_set_topic
type SetTopicInput struct {
	Topic string `json:"topic" jsonschema:"The new group topic"`
}

// SetTopicOutput is the output for relay_set_topic
type SetTopicOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleSetTopic(ctx context.Context, req *mcpsdk.CallToolRequest, input SetTopicInput) (*mcpsdk.CallToolResult, SetTopicOutput, error) {
	if err := s.client.SetTopic(ctx, input.Topic); err != nil {
		return nil, SetTopicOutput{Success: false, Error: err.Error()}, nil
	}
	return nil, SetTopicOutput{Success: true}, nil
}

// GetLogInput specifies how many entries to retrieve
type GetLogInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of entries to retrieve (default 20)"`
}

// LogEntry is one routing decision as reported to tool callers
type LogEntry struct {
	ID          string `json:"id"`
	Sender      string `json:"sender"`
	MessageText string `json:"message_text"`
	Decision    string `json:"decision"`
	Reason      string `json:"reason"`
	Topic       string `json:"topic"`
	Timestamp   string `json:"timestamp"`
}

// GetLogOutput contains recent log entries
type GetLogOutput struct {
	Entries []LogEntry `json:"entries"`
	Error   string     `json:"error,omitempty"`
}

func (s *Server) handleGetLog(ctx context.Context, req *mcpsdk.CallToolRequest, input GetLogInput) (*mcpsdk.CallToolResult, GetLogOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}

	entries, err := s.client.ActivityLog(ctx, limit)
	if err != nil {
		return nil, GetLogOutput{Entries: []LogEntry{}, Error: err.Error()}, nil
	}

	out := make([]LogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, LogEntry{
			ID:          e.ID,
			Sender:      e.Sender,
			MessageText: e.MessageText,
			Decision:    string(e.Decision),
			Reason:      e.Reason,
			Topic:       e.Topic,
			Timestamp:   e.Timestamp,
		})
	}
	return nil, GetLogOutput{Entries: out}, nil
}

// GetFeedInput selects a feed and how many messages to retrieve
type GetFeedInput struct {
	Feed  string `json:"feed" jsonschema:"Which feed to read: source or forwarded"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of messages to retrieve (default 20)"`
}

// FeedMessage is one feed message as reported to tool callers
type FeedMessage struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Origin    string `json:"origin"`
}

// GetFeedOutput contains recent feed messages
type GetFeedOutput struct {
	Messages []FeedMessage `json:"messages"`
	Error    string        `json:"error,omitempty"`
}

func (s *Server) handleGetFeed(ctx context.Context, req *mcpsdk.CallToolRequest, input GetFeedInput) (*mcpsdk.CallToolResult, GetFeedOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}

	msgs, err := s.client.Feed(ctx, input.Feed, limit)
	if err != nil {
		return nil, GetFeedOutput{Messages: []FeedMessage{}, Error: err.Error()}, nil
	}

	out := make([]FeedMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, FeedMessage{
			ID:        m.ID,
			Sender:    m.Sender,
			Text:      m.Text,
			Timestamp: m.Timestamp,
			Origin:    string(m.Origin),
		})
	}
	return nil, GetFeedOutput{Messages: out}, nil
}

// GetStateInput is empty - no input needed
type GetStateInput struct{}

// GetStateOutput contains the dashboard snapshot
type GetStateOutput struct {
	State *domain.Snapshot `json:"state,omitempty"`
	Error string           `json:"error,omitempty"`
}

func (s *Server) handleGetState(ctx context.Context, req *mcpsdk.CallToolRequest, input GetStateInput) (*mcpsdk.CallToolResult, GetStateOutput, error) {
	snap, err := s.client.State(ctx)
	if err != nil {
		return nil, GetStateOutput{Error: err.Error()}, nil
	}
	return nil, GetStateOutput{State: snap}, nil
}

// ToggleConnectionInput selects the connection to toggle
type ToggleConnectionInput struct {
	Side string `json:"side" jsonschema:"Which connection to toggle: source or destination"`
}

// ToggleConnectionOutput is the output for relay_toggle_connection
type ToggleConnectionOutput struct {
	Success bool   `json:"success"`
	State   string `json:"state,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleToggleConnection(ctx context.Context, req *mcpsdk.CallToolRequest, input ToggleConnectionInput) (*mcpsdk.CallToolResult, ToggleConnectionOutput, error) {
	conn, err := s.client.ToggleConnection(ctx, input.Side)
	if err != nil {
		return nil, ToggleConnectionOutput{Success: false, Error: err.Error()}, nil
	}
	return nil, ToggleConnectionOutput{Success: true, State: string(conn.State)}, nil
}
