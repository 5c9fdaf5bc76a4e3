package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	toolParams       string
	toolConversation string
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and run assistant tools",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tool catalogue",
	RunE:  runToolsList,
}

var toolsExecCmd = &cobra.Command{
	Use:   "exec <tool>",
	Short: "Run a tool with JSON parameters",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolsExec,
}

func init() {
	toolsExecCmd.Flags().StringVarP(&toolParams, "params", "p", "{}", "Tool parameters as a JSON object")
	toolsExecCmd.Flags().StringVar(&toolConversation, "conversation", "", "Record the result in this conversation")

	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsExecCmd)
}

func runToolsList(_ *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tPARAMETERS\tDESCRIPTION")
	for _, t := range a.orchestrator.ListTools() {
		params := make([]string, 0, len(t.Parameters.Properties))
		required := make(map[string]bool, len(t.Parameters.Required))
		for _, r := range t.Parameters.Required {
			required[r] = true
		}
		for name := range t.Parameters.Properties {
			if required[name] {
				name += "*"
			}
			params = append(params, name)
		}
		sort.Strings(params)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, t.Kind, strings.Join(params, ","), t.Description)
	}
	return w.Flush()
}

func runToolsExec(_ *cobra.Command, args []string) error {
	var params map[string]any
	if err := json.Unmarshal([]byte(toolParams), &params); err != nil {
		return fmt.Errorf("--params must be a JSON object: %w", err)
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.orchestrator.ExecuteTool(ctx, userID, toolConversation, args[0], params)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("tool %s failed", args[0])
	}
	return nil
}
