package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	ctxengine "github.com/user/agentdeck/internal/context"
	"github.com/user/agentdeck/internal/types"
	"github.com/user/agentdeck/pkg/debugclient"
)

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("agent", "", "agent id (required)")
	chatCmd.Flags().String("server", "http://127.0.0.1:8711", "server base URL")
	_ = chatCmd.MarkFlagRequired("agent")
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open a debug chat with an agent",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

// chatRenderer prints assistant output incrementally: for each turn it
// remembers how much content has been written and emits only the suffix.
type chatRenderer struct {
	mu      sync.Mutex
	printed map[types.TurnID]int
	status  map[types.TurnID]debugclient.TurnStatus
}

func newChatRenderer() *chatRenderer {
	return &chatRenderer{
		printed: make(map[types.TurnID]int),
		status:  make(map[types.TurnID]debugclient.TurnStatus),
	}
}

func (r *chatRenderer) render(turns []debugclient.ChatTurn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range turns {
		if t.Role != "assistant" {
			continue
		}
		prev := r.status[t.ID]
		switch t.Status {
		case debugclient.TurnQueued:
			if prev == "" && t.Ahead > 0 {
				fmt.Printf("[queued, %d ahead]\n", t.Ahead)
			}
		case debugclient.TurnStreaming:
			if n := r.printed[t.ID]; len(t.Content) > n {
				fmt.Print(t.Content[n:])
				r.printed[t.ID] = len(t.Content)
			}
		case debugclient.TurnDone:
			if prev != debugclient.TurnDone {
				if n := r.printed[t.ID]; len(t.Content) > n {
					fmt.Print(t.Content[n:])
					r.printed[t.ID] = len(t.Content)
				}
				fmt.Println()
			}
		case debugclient.TurnError:
			if prev != debugclient.TurnError {
				fmt.Printf("\n[error] %s\n", t.Err)
			}
		}
		r.status[t.ID] = t.Status
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	agentID, _ := cmd.Flags().GetString("agent")
	serverURL, _ := cmd.Flags().GetString("server")

	ctx := cmd.Context()
	client := debugclient.New(strings.TrimRight(serverURL, "/"))

	agent, err := client.GetAgent(ctx, types.AgentID(agentID))
	if err != nil {
		return fmt.Errorf("fetch agent: %w", err)
	}

	fmt.Printf("Chatting with %q (%s). Ctrl-D to exit.\n", agent.Name, agent.ID)

	conv := debugclient.NewConversation(client, agent.ID, ctxengine.BuildAgentContext(agent))
	renderer := newChatRenderer()
	conv.OnUpdate(func() {
		renderer.render(conv.Turns())
	})

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		conv.Submit(context.WithoutCancel(ctx), line)
	}

	// Let any in-flight turn (and coalesced draft) finish before exiting.
	conv.Wait()
	return scanner.Err()
}
