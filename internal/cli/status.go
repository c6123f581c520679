package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/casely/internal/server/httpapi"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show poller and store status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var st httpapi.StatusResponse
			if err := opts.api().call(cmd.Context(), http.MethodGet, "/api/status", nil, &st); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				b, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(w, string(b))
				return nil
			}

			p := st.Poller
			fmt.Fprintf(w, "poller:    running=%t ready=%t paused=%t cycles=%d\n", p.Running, p.Ready, p.Paused, p.Cycles)
			fmt.Fprintf(w, "cursor:    stored=%d effective=%d\n", st.Cursor.Stored, st.Cursor.Effective)
			fmt.Fprintf(w, "contracts: live=%d deleted=%d\n", st.Contracts.Live, st.Contracts.Deleted)
			fmt.Fprintf(w, "updated:   %s\n", formatMillis(st.MaxUpdatedAt))

			if b := p.LastBatch; b != nil {
				line := fmt.Sprintf("last batch: created=%d changed=%d unchanged=%d pages=%d", b.Created, b.Changed, b.Unchanged, b.Pages)
				if b.Aborted {
					line += " aborted=" + b.Reason
				}
				fmt.Fprintln(w, line)
			}
			if s := p.LastSweep; s != nil {
				fmt.Fprintf(w, "last sweep: refreshed=%d\n", s.Refreshed)
			}
			if p.LastError != "" {
				fmt.Fprintf(w, "last error: %s\n", p.LastError)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw status document")
	return cmd
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
