package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newManifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Fetch and print the session tool manifest",
		Args:  cobra.NoArgs,
		RunE:  runManifest,
	}
	cmd.Flags().Bool("json", false, "Print the manifest as indented JSON")
	return cmd
}

func runManifest(cmd *cobra.Command, _ []string) error {
	setup, err := resolveSetup(cmd)
	if err != nil {
		return err
	}
	defer setup.close()

	manifest, err := setup.client.GetToolManifest(cmd.Context(), setup.apiVersion)
	if err != nil {
		return exitError(exitEndpoint, "fetching manifest: %v", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return exitError(exitRuntime, "encoding manifest: %v", err)
		}
		_, _ = cmd.OutOrStdout().Write(append(data, '\n'))
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session: %s\n", setup.client.SessionID())
	fmt.Fprintf(out, "API version: %s\n", manifest.APIVersion)
	fmt.Fprintf(out, "Tools: %d\n\n", len(manifest.Tools))

	writer := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tDESCRIPTION")
	for _, descriptor := range manifest.Tools {
		description := descriptor.Description
		if description == "" {
			description = "-"
		}
		fmt.Fprintf(writer, "%s\t%s\n", descriptor.Name, description)
	}
	return writer.Flush()
}
