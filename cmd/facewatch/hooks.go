package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ayusman/facewatch/internal/config"
	"github.com/ayusman/facewatch/internal/hook"
	"github.com/spf13/cobra"
)

func newHooksCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "List discovered alert hooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := discoverHooks(cfg)
			if err != nil {
				return err
			}

			hooks := m.List()
			if len(hooks) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No hooks found in %s\n", m.Dir())
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tEVENTS\tDESCRIPTION")
			fmt.Fprintln(w, "----\t-------\t------\t-----------")
			for _, h := range hooks {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", h.Manifest.Name, h.Manifest.Version, strings.Join(h.Manifest.Events, ","), h.Manifest.Description)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "test <name>",
		Short: "Run a hook with a synthetic alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := discoverHooks(cfg)
			if err != nil {
				return err
			}
			h, err := m.Get(args[0])
			if err != nil {
				return err
			}

			resp, err := hook.NewExecutor(hook.DefaultTimeout).Execute(cmd.Context(), h, &hook.Request{
				Event:     hook.EventAlert,
				AlertID:   "test",
				Identity:  "test",
				Caption:   "hook test",
				Timestamp: time.Now().Format(time.RFC3339),
			})
			if err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("hook %s failed: %s", h.Manifest.Name, resp.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "hook %s ok: %s\n", h.Manifest.Name, resp.Message)
			return nil
		},
	})
	return cmd
}

func discoverHooks(cfg *config.Config) (*hook.Manager, error) {
	m := hook.NewManager(cfg.HooksDir)
	if err := m.Discover(); err != nil {
		return nil, fmt.Errorf("discover hooks: %w", err)
	}
	return m, nil
}
