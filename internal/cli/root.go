// Package cli implements caselyctl, the admin command line for a running
// casely server and its database.
package cli

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

const (
	defaultServer = "http://localhost:8000"
	defaultDB     = "data/casely.db"
)

type rootOptions struct {
	server  string
	db      string
	timeout time.Duration

	// httpClient overrides the client built from timeout.
	httpClient *http.Client
}

func (o *rootOptions) api() *apiClient {
	c := o.httpClient
	if c == nil {
		c = &http.Client{Timeout: o.timeout}
	}
	return &apiClient{base: o.server, http: c}
}

// NewRootCmd builds the caselyctl command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "caselyctl",
		Short: "Administer a casely server",
		Long: `caselyctl manages the origin credential of a running casely server,
shows its sync status and applies database migrations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.server, "server", defaultServer, "casely server base URL")
	root.PersistentFlags().StringVar(&opts.db, "db", defaultDB, "path to the SQLite database")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "HTTP request timeout")

	root.AddCommand(
		newCredentialCmd(opts),
		newStatusCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}
