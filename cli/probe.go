package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codap-mcp/codapmeta"
)

func newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Run a one-shot health probe against the session endpoint",
		Args:  cobra.NoArgs,
		RunE:  runProbe,
	}
	cmd.Flags().Bool("json", false, "Print the probe result as JSON")
	return cmd
}

func runProbe(cmd *cobra.Command, _ []string) error {
	setup, err := resolveSetup(cmd)
	if err != nil {
		return err
	}
	defer setup.close()

	result := setup.client.Probe(cmd.Context(), setup.apiVersion)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return exitError(exitRuntime, "encoding probe result: %v", err)
		}
		_, _ = cmd.OutOrStdout().Write(append(data, '\n'))
		if result.Status != codapmeta.ProbeOK {
			return exitError(exitProbeFailed, "probe failed: %s", result.Status)
		}
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Status: %s\n", result.Status)
	fmt.Fprintf(out, "Latency: %dms\n", result.LatencyMS)
	if result.APIVersion != "" {
		fmt.Fprintf(out, "API version: %s\n", result.APIVersion)
	}

	if result.Status == codapmeta.ProbeOK {
		fmt.Fprintf(out, "Tools: %d\n", result.ToolCount)
		return nil
	}
	if result.Message != "" {
		fmt.Fprintf(out, "Detail: %s\n", result.Message)
	}
	return exitError(exitProbeFailed, "probe failed: %s", result.Status)
}
