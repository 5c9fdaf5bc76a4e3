package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/siteops/siteops/assistant"
)

var (
	chatMessage      string
	chatModel        string
	chatConversation string
	chatImage        string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant (interactive unless --message is given)",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVar(&chatModel, "model", "", "Model to use (default inference.default_model)")
	chatCmd.Flags().StringVar(&chatConversation, "conversation", "", "Continue an existing conversation")
	chatCmd.Flags().StringVar(&chatImage, "image", "", "Image URL or data URI attached to the message")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runChat(_ *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	model := chatModel
	if model == "" {
		model = a.cfg.Inference.DefaultModel
	}
	session := &chatSession{orchestrator: a.orchestrator, model: model, conversationID: chatConversation}

	if chatMessage != "" {
		return session.send(ctx, chatMessage, chatImage)
	}

	fmt.Printf("siteops chat with %s (type 'exit' or Ctrl+C to quit)\n\n", model)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			return nil
		}

		if err := session.send(ctx, line, ""); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
}

// chatSession keeps the conversation id across turns.
type chatSession struct {
	orchestrator   *assistant.Orchestrator
	model          string
	conversationID string
}

func (s *chatSession) send(ctx context.Context, message, imageURL string) error {
	fmt.Print("Assistant: ")
	reply, err := s.orchestrator.StreamChat(ctx, assistant.ChatRequest{
		ConversationID: s.conversationID,
		OwnerID:        userID,
		Message:        message,
		Model:          s.model,
		ImageURL:       imageURL,
	}, func(delta string) {
		fmt.Print(delta)
	})
	fmt.Println()
	if err != nil {
		return err
	}

	s.conversationID = reply.ConversationID
	for _, call := range reply.ToolCalls {
		params, _ := json.Marshal(call.Parameters)
		fmt.Printf("  suggested: %s %s\n", call.Name, params)
		fmt.Printf("  run with:  siteops tools exec %s --params '%s' --conversation %s\n", call.Name, params, reply.ConversationID)
	}
	fmt.Println()
	return nil
}
