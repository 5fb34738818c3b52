package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-viewstate/pkg/config"
	"github.com/goliatone/go-viewstate/pkg/state"
)

// refFlags select one stored page state.
type refFlags struct {
	page    string
	session string
	db      string
}

func (f *refFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.page, "page", "", "page identifier")
	cmd.Flags().StringVar(&f.session, "session", "", "session identifier")
	cmd.Flags().StringVar(&f.db, "state-db", "", "bolt file holding page state (overrides state.path)")
	_ = cmd.MarkFlagRequired("page")
}

func (f *refFlags) ref() state.Ref {
	return state.Ref{Page: f.page, Session: f.session}
}

// openStore opens the configured store, switching to bolt when a file is
// named on the command line.
func (a *app) openStore(f *refFlags) (state.Store, func() error, error) {
	cfg := a.cfg.State
	if f.db != "" {
		cfg.Store = config.StoreBolt
		cfg.Path = f.db
	}
	return cfg.OpenStore()
}

type stateOutput struct {
	Page     string        `json:"page"`
	Session  string        `json:"session,omitempty"`
	Meta     state.Meta    `json:"meta"`
	Bytes    int           `json:"bytes"`
	Snapshot *snapshotView `json:"snapshot"`
}

func newStateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or delete stored page state",
	}
	cmd.AddCommand(newStateShowCmd(a), newStateDeleteCmd(a))
	return cmd
}

func newStateShowCmd(a *app) *cobra.Command {
	flags := &refFlags{}
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Decode and print the stored state of a page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := a.openStore(flags)
			if err != nil {
				return err
			}
			defer closeStore()

			ref := flags.ref()
			blob, meta, ok, err := store.Load(cmd.Context(), ref)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no state stored for page %q", ref.Page)
			}
			snap, err := a.codec(cmd.ErrOrStderr()).Decode(blob)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stateOutput{
				Page:     ref.Page,
				Session:  ref.Session,
				Meta:     meta,
				Bytes:    len(blob),
				Snapshot: viewOf(snap),
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newStateDeleteCmd(a *app) *cobra.Command {
	flags := &refFlags{}
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored state of a page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := a.openStore(flags)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Delete(cmd.Context(), flags.ref()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", flags.page)
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}
