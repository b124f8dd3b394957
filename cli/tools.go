package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewToolsCmd creates the "tools" command group.
func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect tools advertised by the session",
	}

	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsSchemaCmd())
	cmd.AddCommand(newToolsCheckCmd())

	return cmd
}

func newToolsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tool names in the session manifest",
		Args:  cobra.NoArgs,
		RunE:  runToolsList,
	}
	cmd.Flags().Bool("json", false, "Print name/description pairs as JSON")
	return cmd
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	setup, err := resolveSetup(cmd)
	if err != nil {
		return err
	}
	defer setup.close()

	manifest, err := setup.client.GetToolManifest(cmd.Context(), setup.apiVersion)
	if err != nil {
		return exitError(exitEndpoint, "listing tools: %v", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := json.MarshalIndent(manifest.Summaries(), "", "  ")
		if err != nil {
			return exitError(exitRuntime, "encoding tool list: %v", err)
		}
		_, _ = cmd.OutOrStdout().Write(append(data, '\n'))
		return nil
	}

	for _, summary := range manifest.Summaries() {
		fmt.Fprintln(cmd.OutOrStdout(), summary.Name)
	}
	return nil
}

func newToolsSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <name>",
		Short: "Print a tool's input schema",
		Args:  cobra.ExactArgs(1),
		RunE:  runToolsSchema,
	}
}

func runToolsSchema(cmd *cobra.Command, args []string) error {
	setup, err := resolveSetup(cmd)
	if err != nil {
		return err
	}
	defer setup.close()

	name := args[0]
	manifest, err := setup.client.GetToolManifest(cmd.Context(), setup.apiVersion)
	if err != nil {
		return exitError(exitEndpoint, "fetching manifest: %v", err)
	}

	descriptor, found := manifest.Tool(name)
	if !found {
		return exitError(exitToolMissing, "tool %q not found in session manifest", name)
	}
	if descriptor.InputSchema == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "tool %q declares no input schema\n", name)
		return nil
	}

	data, err := json.MarshalIndent(descriptor.InputSchema, "", "  ")
	if err != nil {
		return exitError(exitRuntime, "encoding schema: %v", err)
	}
	_, _ = cmd.OutOrStdout().Write(append(data, '\n'))
	return nil
}

func newToolsCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <name>",
		Short: "Check whether a tool is available in the session",
		Args:  cobra.ExactArgs(1),
		RunE:  runToolsCheck,
	}
}

func runToolsCheck(cmd *cobra.Command, args []string) error {
	setup, err := resolveSetup(cmd)
	if err != nil {
		return err
	}
	defer setup.close()

	name := args[0]
	if setup.client.IsToolAvailable(cmd.Context(), name) {
		fmt.Fprintln(cmd.OutOrStdout(), "available")
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), "unavailable")
	return exitError(exitToolMissing, "tool %q is not available", name)
}
