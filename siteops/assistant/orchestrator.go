package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
	"github.com/ZanzyTHEbar/siteops/siteops/inference"
	"github.com/rs/zerolog"
)

// ChatRequest is one caller turn.
type ChatRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	OwnerID        string `json:"-"`
	Message        string `json:"message"`
	Model          string `json:"model"`
	ImageURL       string `json:"imageUrl,omitempty"`
	AudioURL       string `json:"audioUrl,omitempty"`
}

// ChatReply is the persisted assistant answer. ToolCalls are suggestions
// only; nothing is executed on the caller's behalf.
type ChatReply struct {
	ConversationID string           `json:"conversationId"`
	MessageID      string           `json:"messageId"`
	Content        string           `json:"content"`
	Model          string           `json:"model"`
	ToolCalls      []ports.ToolCall `json:"toolCalls,omitempty"`
}

// Policy controls chat turn behavior.
type Policy struct {
	TitleLength int                // runes of the first message kept as a title
	NativeTools bool               // attach function definitions to chat requests
	Options     *inference.Options // sampling overrides; nil uses gateway defaults
}

// DefaultPolicy returns sensible defaults.
func DefaultPolicy() *Policy {
	return &Policy{TitleLength: 50}
}

// StreamingGateway is implemented by gateways that can stream chat output.
type StreamingGateway interface {
	ChatStream(ctx context.Context, req inference.ChatRequest) (*inference.Stream[inference.ChatResponse], error)
}

// Orchestrator runs chat turns and the conversation and tool operations
// around them.
type Orchestrator struct {
	gateway    ports.Gateway
	store      ports.ConversationStore
	dispatcher *Dispatcher
	builder    *PromptBuilder
	parser     *OutputParser
	media      ports.MediaLoader // optional
	limiter    ports.RateLimiter
	tracer     ports.Tracer
	logger     zerolog.Logger
	policy     *Policy
}

// NewOrchestrator creates a new orchestrator with dependencies. media may be nil.
func NewOrchestrator(
	gateway ports.Gateway,
	store ports.ConversationStore,
	dispatcher *Dispatcher,
	builder *PromptBuilder,
	media ports.MediaLoader,
	limiter ports.RateLimiter,
	tracer ports.Tracer,
	logger zerolog.Logger,
) *Orchestrator {
	if builder == nil {
		builder = NewPromptBuilder(nil)
	}
	if limiter == nil {
		limiter = &noOpRateLimiter{}
	}
	if tracer == nil {
		tracer = &noOpTracer{}
	}
	return &Orchestrator{
		gateway:    gateway,
		store:      store,
		dispatcher: dispatcher,
		builder:    builder,
		parser:     NewOutputParser(dispatcher.Registry().Has),
		media:      media,
		limiter:    limiter,
		tracer:     tracer,
		logger:     logger,
		policy:     DefaultPolicy(),
	}
}

// WithPolicy replaces the chat policy. Non-positive title lengths keep the default.
func (o *Orchestrator) WithPolicy(p *Policy) *Orchestrator {
	if p == nil {
		return o
	}
	cp := *p
	if cp.TitleLength <= 0 {
		cp.TitleLength = DefaultPolicy().TitleLength
	}
	o.policy = &cp
	return o
}

// Chat runs one turn: validate, check the model, resolve the conversation,
// persist the user message, rebuild history, call the model and persist
// its answer. The user message stays persisted if the model call fails.
func (o *Orchestrator) Chat(ctx context.Context, req ChatRequest) (reply *ChatReply, err error) {
	turn, err := o.begin(ctx, &req)
	if err != nil {
		return nil, err
	}

	ctx, finish := o.tracer.StartSpan(ctx, "chat.turn", map[string]any{
		"conversation_id": turn.conversation.ID,
		"model":           req.Model,
	})
	defer func() { finish(err) }()

	resp, err := o.gateway.Chat(ctx, turn.chatRequest)
	if err != nil {
		if errors.Is(err, inference.ErrEmptyResponse) {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrChatFailed, err)
	}
	if resp == nil || resp.Message == nil {
		return nil, fmt.Errorf("%w: response has no message", ErrMalformedResponse)
	}

	return o.finish(ctx, turn, resp.Message.Content, resp.Message.ToolCalls)
}

// StreamChat runs the same turn as Chat but streams the model output,
// passing each content delta to onDelta. The assistant message is persisted
// once the stream completes.
func (o *Orchestrator) StreamChat(ctx context.Context, req ChatRequest, onDelta func(string)) (reply *ChatReply, err error) {
	streamer, ok := o.gateway.(StreamingGateway)
	if !ok {
		return nil, fmt.Errorf("%w: gateway does not support streaming", ErrChatFailed)
	}

	turn, err := o.begin(ctx, &req)
	if err != nil {
		return nil, err
	}

	ctx, finish := o.tracer.StartSpan(ctx, "chat.stream", map[string]any{
		"conversation_id": turn.conversation.ID,
		"model":           req.Model,
	})
	defer func() { finish(err) }()

	stream, err := streamer.ChatStream(ctx, turn.chatRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChatFailed, err)
	}
	defer stream.Close()

	var content strings.Builder
	var native []inference.ToolCall
	received := false
	for chunk, serr := range stream.All() {
		if serr != nil {
			return nil, fmt.Errorf("%w: %w", ErrChatFailed, serr)
		}
		if chunk.Message == nil {
			continue
		}
		received = true
		content.WriteString(chunk.Message.Content)
		native = append(native, chunk.Message.ToolCalls...)
		if onDelta != nil && chunk.Message.Content != "" {
			onDelta(chunk.Message.Content)
		}
	}
	if !received {
		return nil, fmt.Errorf("%w: stream ended without a message", ErrMalformedResponse)
	}

	return o.finish(ctx, turn, content.String(), native)
}

// turnState carries what begin resolved into the model call and the final persist.
type turnState struct {
	conversation ports.Conversation
	chatRequest  inference.ChatRequest
}

// begin performs every step up to the model call.
func (o *Orchestrator) begin(ctx context.Context, req *ChatRequest) (*turnState, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if req.OwnerID == "" {
		return nil, ErrOwnerRequired
	}
	if req.Model == "" {
		return nil, ErrModelRequired
	}

	release, err := o.limiter.Acquire(ctx, req.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	defer release()

	if !o.modelAvailable(ctx, req.Model) {
		return nil, &ModelUnavailableError{Model: req.Model}
	}

	conv, err := o.resolveConversation(ctx, req.OwnerID, req.ConversationID, text, req.Model)
	if err != nil {
		return nil, err
	}

	userMsg := &ports.Message{
		ConversationID: conv.ID,
		Role:           ports.RoleUser,
		Content:        text,
		AudioURL:       req.AudioURL,
		ImageURL:       req.ImageURL,
	}
	if err := o.store.CreateMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	history, err := o.history(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	messages := make([]inference.Message, 0, len(history)+1)
	messages = append(messages, inference.Message{
		Role:    ports.RoleSystem,
		Content: o.builder.SystemPrompt(o.dispatcher.ListToolDescriptors()),
	})
	messages = append(messages, history...)

	chatReq := inference.ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Options:  o.policy.Options,
	}
	if o.policy.NativeTools {
		chatReq.Tools = o.dispatcher.Registry().FunctionDefinitions()
	}

	return &turnState{conversation: *conv, chatRequest: chatReq}, nil
}

// finish persists the assistant message and builds the reply.
func (o *Orchestrator) finish(ctx context.Context, turn *turnState, content string, native []inference.ToolCall) (*ChatReply, error) {
	calls := o.parser.FromNative(native)
	if len(calls) == 0 {
		calls = o.parser.ParseToolCalls(content)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		if len(calls) == 0 {
			return nil, fmt.Errorf("%w: empty content", ErrMalformedResponse)
		}
		raw, _ := json.Marshal(calls)
		content = "Suggested tool calls: " + string(raw)
	}

	model := turn.chatRequest.Model
	assistantMsg := &ports.Message{
		ConversationID: turn.conversation.ID,
		Role:           ports.RoleAssistant,
		Content:        content,
		Model:          model,
	}
	if err := o.store.CreateMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}

	o.tracer.Event(ctx, "chat.persisted", map[string]any{
		"message_id": assistantMsg.ID,
		"tool_calls": len(calls),
	})

	return &ChatReply{
		ConversationID: turn.conversation.ID,
		MessageID:      assistantMsg.ID,
		Content:        content,
		Model:          model,
		ToolCalls:      calls,
	}, nil
}

func (o *Orchestrator) modelAvailable(ctx context.Context, model string) bool {
	for _, m := range o.gateway.ListModels(ctx) {
		if m.Name == model {
			return true
		}
	}
	return false
}

// resolveConversation creates a conversation when id is empty, otherwise
// returns the caller's conversation with that id.
func (o *Orchestrator) resolveConversation(ctx context.Context, ownerID, id, firstMessage, model string) (*ports.Conversation, error) {
	if id == "" {
		conv := &ports.Conversation{
			OwnerID: ownerID,
			Title:   Title(firstMessage, o.policy.TitleLength),
			Model:   model,
		}
		if err := o.store.CreateConversation(ctx, conv); err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
		o.logger.Info().Str("conversation_id", conv.ID).Str("owner", ownerID).Msg("Created conversation")
		return conv, nil
	}
	return o.ownedConversation(ctx, ownerID, id)
}

// ownedConversation scans the owner's conversations for id. Unknown and
// foreign ids are indistinguishable to the caller.
func (o *Orchestrator) ownedConversation(ctx context.Context, ownerID, id string) (*ports.Conversation, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	convs, err := o.store.ListConversations(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	for i := range convs {
		if convs[i].ID == id {
			return &convs[i], nil
		}
	}
	o.logger.Warn().Str("conversation_id", id).Str("owner", ownerID).Msg("Conversation access denied")
	return nil, fmt.Errorf("%w: conversation %s", ErrAccessDenied, id)
}

// history maps stored messages to the gateway shape, loading attached images.
func (o *Orchestrator) history(ctx context.Context, conversationID string) ([]inference.Message, error) {
	stored, err := o.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	out := make([]inference.Message, 0, len(stored))
	for _, m := range stored {
		msg := inference.Message{Role: m.Role, Content: m.Content}
		if m.ImageURL != "" && o.media != nil {
			img, err := o.media.LoadBase64(ctx, m.ImageURL)
			if err != nil {
				o.logger.Warn().Err(err).Str("message_id", m.ID).Msg("Skipping unreadable image")
			} else {
				msg.Images = []string{img}
			}
		}
		out = append(out, msg)
	}
	return out, nil
}

// Title derives a conversation title from the first maxRunes runes of a
// message, marking truncation with "...".
func Title(message string, maxRunes int) string {
	message = strings.Join(strings.Fields(message), " ")
	if maxRunes <= 0 || utf8.RuneCountInString(message) <= maxRunes {
		return message
	}
	runes := []rune(message)
	return strings.TrimSpace(string(runes[:maxRunes])) + "..."
}

// ---- conversation management ----

// CreateConversation starts an empty conversation.
func (o *Orchestrator) CreateConversation(ctx context.Context, ownerID, title, model string) (*ports.Conversation, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New conversation"
	}
	conv := &ports.Conversation{OwnerID: ownerID, Title: Title(title, o.policy.TitleLength), Model: model}
	if err := o.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the caller's conversations.
func (o *Orchestrator) ListConversations(ctx context.Context, ownerID string) ([]ports.Conversation, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	convs, err := o.store.ListConversations(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if convs == nil {
		convs = []ports.Conversation{}
	}
	return convs, nil
}

// GetMessages returns a conversation's messages in creation order.
func (o *Orchestrator) GetMessages(ctx context.Context, ownerID, conversationID string) ([]ports.Message, error) {
	if _, err := o.ownedConversation(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}
	msgs, err := o.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if msgs == nil {
		msgs = []ports.Message{}
	}
	return msgs, nil
}

// DeleteConversation removes the caller's conversation and its messages.
func (o *Orchestrator) DeleteConversation(ctx context.Context, ownerID, conversationID string) error {
	if _, err := o.ownedConversation(ctx, ownerID, conversationID); err != nil {
		return err
	}
	if err := o.store.DeleteConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	o.logger.Info().Str("conversation_id", conversationID).Str("owner", ownerID).Msg("Deleted conversation")
	return nil
}

// ---- tools ----

// ExecuteTool dispatches a tool for the caller. When conversationID is set
// the envelope is also appended to that conversation as a tool message, so
// a following turn can refer to it.
func (o *Orchestrator) ExecuteTool(ctx context.Context, ownerID, conversationID, name string, params map[string]any) (ports.InvocationResult, error) {
	if ownerID == "" {
		return ports.InvocationResult{}, ErrOwnerRequired
	}
	if conversationID != "" {
		if _, err := o.ownedConversation(ctx, ownerID, conversationID); err != nil {
			return ports.InvocationResult{}, err
		}
	}

	result := o.dispatcher.Execute(ctx, name, params, ownerID)
	if err := o.recordToolResults(ctx, conversationID, result); err != nil {
		return result, err
	}
	return result, nil
}

// ExecuteTools dispatches calls concurrently and returns their envelopes
// in call order. When conversationID is set each envelope is recorded as a
// tool message, also in call order.
func (o *Orchestrator) ExecuteTools(ctx context.Context, ownerID, conversationID string, calls []ports.ToolCall) ([]ports.InvocationResult, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	if len(calls) == 0 {
		return nil, ErrNoToolCalls
	}
	if conversationID != "" {
		if _, err := o.ownedConversation(ctx, ownerID, conversationID); err != nil {
			return nil, err
		}
	}

	results := o.dispatcher.ExecuteBatch(ctx, calls, ownerID)
	if err := o.recordToolResults(ctx, conversationID, results...); err != nil {
		return results, err
	}
	return results, nil
}

func (o *Orchestrator) recordToolResults(ctx context.Context, conversationID string, results ...ports.InvocationResult) error {
	if conversationID == "" {
		return nil
	}
	for _, result := range results {
		raw, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode tool result: %w", err)
		}
		msg := &ports.Message{ConversationID: conversationID, Role: ports.RoleTool, Content: string(raw)}
		if err := o.store.CreateMessage(ctx, msg); err != nil {
			return fmt.Errorf("failed to save tool message: %w", err)
		}
	}
	return nil
}

// ListTools exposes the tool catalogue.
func (o *Orchestrator) ListTools() []ports.ToolDescriptor {
	return o.dispatcher.ListToolDescriptors()
}

// ---- models ----

func (o *Orchestrator) ListModels(ctx context.Context) []inference.ModelDescriptor {
	return o.gateway.ListModels(ctx)
}

func (o *Orchestrator) PullModel(ctx context.Context, name string, onProgress func(inference.PullProgress)) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, ErrModelRequired
	}
	return o.gateway.PullModel(ctx, name, onProgress)
}

func (o *Orchestrator) DeleteModel(ctx context.Context, name string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, ErrModelRequired
	}
	return o.gateway.DeleteModel(ctx, name)
}

// Available reports whether the model runtime answers.
func (o *Orchestrator) Available(ctx context.Context) bool {
	return o.gateway.IsAvailable(ctx)
}
