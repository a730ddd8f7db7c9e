package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/user/agentdeck/internal/state"
	"github.com/user/agentdeck/internal/types"
)

func init() {
	rootCmd.AddCommand(agentCmd)
	agentCmd.AddCommand(agentListCmd, agentShowCmd, agentCreateCmd, agentRemoveCmd)

	agentCreateCmd.Flags().String("name", "", "agent name (required)")
	agentCreateCmd.Flags().String("description", "", "role description")
	agentCreateCmd.Flags().String("constraints", "", "behavioral constraints")
	_ = agentCreateCmd.MarkFlagRequired("name")
}

func agentStore() *state.AgentStore {
	cfg := loadConfig()
	return state.NewAgentStore(filepath.Join(cfg.DataDir, "agents.json"))
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage agents",
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all agents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := agentStore()
		agents, err := store.List()
		if err != nil {
			return fmt.Errorf("list agents: %w", err)
		}

		if len(agents) == 0 {
			fmt.Println("No agents configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tUPDATED\tDESCRIPTION")
		for _, a := range agents {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				a.ID,
				a.Name,
				a.UpdatedAt.Format("2006-01-02 15:04"),
				a.Description,
			)
		}
		return w.Flush()
	},
}

var agentShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one agent as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := agentStore()
		agent, err := store.Get(types.AgentID(args[0]))
		if err != nil {
			return fmt.Errorf("get agent: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(agent)
	},
}

var agentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new agent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		description, _ := cmd.Flags().GetString("description")
		constraints, _ := cmd.Flags().GetString("constraints")

		store := agentStore()
		agent, err := store.Create(types.AgentCreate{
			Name:        name,
			Description: description,
			Constraints: constraints,
		})
		if err != nil {
			return fmt.Errorf("create agent: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Agent %q created (%s).\n", agent.Name, agent.ID)
		return nil
	},
}

var agentRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := agentStore()
		if err := store.Delete(types.AgentID(args[0])); err != nil {
			return fmt.Errorf("remove agent: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Agent %s removed.\n", args[0])
		return nil
	},
}
