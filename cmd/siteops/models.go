package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/siteops/siteops/inference"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage models on the inference runtime",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed models",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.orchestrator.Available(ctx) {
			return fmt.Errorf("inference runtime at %s is not reachable", a.gateway.BaseURL)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tFAMILY\tPARAMS\tMODIFIED")
		for _, m := range a.orchestrator.ListModels(ctx) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.Name, humanBytes(m.SizeBytes), m.Family, m.ParameterSize, m.ModifiedAt.Format(time.DateOnly))
		}
		return w.Flush()
	},
}

var modelsPullCmd = &cobra.Command{
	Use:   "pull <model>",
	Short: "Download a model, reporting progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		last := ""
		ok, err := a.orchestrator.PullModel(ctx, args[0], func(p inference.PullProgress) {
			if p.Total > 0 {
				fmt.Fprintf(os.Stderr, "\r%-40s %5.1f%%", p.Status, p.Percent())
				last = p.Status
				return
			}
			if p.Status != last {
				fmt.Fprintf(os.Stderr, "\n%s", p.Status)
				last = p.Status
			}
		})
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("pull of %s did not report success", args[0])
		}
		fmt.Printf("Pulled %s\n", args[0])
		return nil
	},
}

var modelsDeleteCmd = &cobra.Command{
	Use:   "delete <model>",
	Short: "Delete an installed model",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		ok, err := a.orchestrator.DeleteModel(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("model %s not found", args[0])
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsPullCmd)
	modelsCmd.AddCommand(modelsDeleteCmd)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
