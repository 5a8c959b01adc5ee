package main

import (
	"fmt"
	"os"

	"github.com/hanpama/mutagraph/internal/demo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSDLCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "sdl",
		Short: "Print the demo schema as SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := demo.NewSchema(zap.NewNop())
			if err != nil {
				return fmt.Errorf("build schema: %w", err)
			}
			sdl := s.Render()
			if out == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), sdl)
				return err
			}
			return os.WriteFile(out, []byte(sdl), 0o644)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Write SDL to file instead of stdout")
	return cmd
}
