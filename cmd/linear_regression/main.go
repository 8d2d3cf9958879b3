// Command linear_regression fits a Lasso model to the Diabetes data and
// prints R² and the mean squared error on the validation rows. The data is
// read from the files bundled in the binary; with data.source set to remote
// it is downloaded on first use and cached under the data home.
package main

import (
	"context"
	"os"

	"github.com/scigo/workflows/internal/cfg"
	"github.com/scigo/workflows/internal/cli"
	"github.com/scigo/workflows/workflows"
)

func main() {
	os.Exit(cli.Run("regression", func(ctx context.Context, s cfg.Settings, env workflows.Env) error {
		src, closeSrc, err := s.Data.OpenSource(env.Logger)
		if err != nil {
			return err
		}
		defer closeSrc()

		env.Source = src
		_, err = workflows.RunRegression(ctx, s.Regression, env)
		return err
	}))
}
