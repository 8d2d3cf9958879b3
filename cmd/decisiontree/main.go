// Command decisiontree trains a decision tree on the Iris data and prints
// its confusion matrix, accuracy and feature importances.
package main

import (
	"context"
	"os"

	"github.com/scigo/workflows/internal/cfg"
	"github.com/scigo/workflows/internal/cli"
	"github.com/scigo/workflows/workflows"
)

func main() {
	os.Exit(cli.Run("decisiontree", func(ctx context.Context, s cfg.Settings, env workflows.Env) error {
		_, err := workflows.RunClassification(ctx, s.Classification, env)
		return err
	}))
}
