// Command clustering fits k-means to synthetic Gaussian blobs and reports
// process memory at each stage.
package main

import (
	"context"
	"os"

	"github.com/scigo/workflows/internal/cfg"
	"github.com/scigo/workflows/internal/cli"
	"github.com/scigo/workflows/workflows"
)

func main() {
	os.Exit(cli.Run("clustering", func(ctx context.Context, s cfg.Settings, env workflows.Env) error {
		_, err := workflows.RunClustering(ctx, s.Clustering, env)
		return err
	}))
}
