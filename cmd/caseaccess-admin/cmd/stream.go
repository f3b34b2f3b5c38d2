package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caseaccessio/api/internal/infra/postgres"
)

var streamJSON bool

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Inspect event streams",
}

var streamCatCmd = &cobra.Command{
	Use:   "cat <stream-id>",
	Short: "Print a stream's events in version order",
	Long: `Print every event of a stream, e.g.

  caseaccess-admin stream cat assignment:case-4bb0…
  caseaccess-admin stream cat association:defendant-91fe… --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		store := postgres.NewEventStore(db)
		events, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "stream is empty")
			return nil
		}

		if streamJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(events)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tEVENT\tRECORDED AT\tPAYLOAD")
		for _, e := range events {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.Version, e.Name, e.RecordedAt.Format("2006-01-02T15:04:05Z"), string(e.Data))
		}
		return w.Flush()
	},
}

var streamListCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List stream ids, optionally by prefix",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}

		store := postgres.NewEventStore(db)
		streams, err := store.ListStreams(cmd.Context(), prefix)
		if err != nil {
			return err
		}
		for _, id := range streams {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		if len(streams) == 0 {
			fmt.Fprintln(os.Stderr, "no streams found")
		}
		return nil
	},
}

func init() {
	streamCatCmd.Flags().BoolVar(&streamJSON, "json", false, "Output events as JSON")
	streamCmd.AddCommand(streamCatCmd)
	streamCmd.AddCommand(streamListCmd)
}
