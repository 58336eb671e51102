package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/prlens/internal/config"
	"github.com/dshills/prlens/internal/providers"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured providers and their readiness",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		anyReady := false
		for _, st := range providers.Probe(ctx, cfg.ProviderSettings()) {
			if st.Ready {
				anyReady = true
				okColor.Fprintf(os.Stdout, "%-10s ready\n", st.Name)
				continue
			}
			fmt.Fprintf(os.Stdout, "%-10s not ready: %s\n", st.Name, st.Detail)
		}

		if !anyReady {
			warnColor.Fprintln(os.Stderr, "No provider is ready; analyze will fail until one is configured")
			exitCode = ExitAuthError
		}
		return nil
	},
}
