package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List configured projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		statuses := a.Projects(cmd.Context())
		if outputJSON {
			return printJSON(cmd, statuses)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLANGUAGE\tBACKEND\tSUBJECTS\tTRAINED\tSTATUS")
		for _, s := range statuses {
			status := "ok"
			if !s.Available {
				status = s.Error
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%s\n", s.ID, s.Language, s.Backend, s.VocabularySize, s.IsTrained, status)
		}
		return w.Flush()
	},
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List backend variants and their availability",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		variants := newRegistry().Variants()
		if outputJSON {
			return printJSON(cmd, variants)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "BACKEND\tAVAILABLE\tREQUIRES")
		for _, v := range variants {
			fmt.Fprintf(w, "%s\t%t\t%s\n", v.Name, v.Available, v.Capability)
		}
		return w.Flush()
	},
}
