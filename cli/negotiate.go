package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newNegotiateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "negotiate <version> [version...]",
		Short: "Probe which API versions the session supports",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runNegotiate,
	}
}

func runNegotiate(cmd *cobra.Command, args []string) error {
	setup, err := resolveSetup(cmd)
	if err != nil {
		return err
	}
	defer setup.close()

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "VERSION\tSUPPORTED\tDETAIL")

	unsupported := 0
	for _, version := range args {
		outcome, err := setup.client.TestVersionNegotiation(cmd.Context(), version)
		if err != nil {
			_ = writer.Flush()
			return exitError(exitEndpoint, "negotiating version %s: %v", version, err)
		}

		if outcome.Supported {
			fmt.Fprintf(writer, "%s\tyes\tnegotiated %s\n", version, outcome.Version)
			continue
		}

		unsupported++
		detail := outcome.Reason
		if len(outcome.SupportedVersions) > 0 {
			detail = fmt.Sprintf("%s (supported: %s)", outcome.Reason, strings.Join(outcome.SupportedVersions, ", "))
		}
		fmt.Fprintf(writer, "%s\tno\t%s\n", version, detail)
	}

	if err := writer.Flush(); err != nil {
		return err
	}
	if unsupported > 0 {
		return exitError(exitUnsupported, "%d of %d probed version(s) unsupported", unsupported, len(args))
	}
	return nil
}
