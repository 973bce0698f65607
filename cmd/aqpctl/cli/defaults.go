package cli

import (
	"github.com/spf13/cobra"
)

type defaultsOutput struct {
	TreeType      string `json:"tree_type" yaml:"tree_type"`
	ValueField    string `json:"value_field" yaml:"value_field"`
	FromDate      string `json:"from_date" yaml:"from_date"`
	ToDate        string `json:"to_date" yaml:"to_date"`
	Range         string `json:"range" yaml:"range"`
	MonitorRegion string `json:"monitor_region,omitempty" yaml:"monitor_region,omitempty"`
}

func newDefaultsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Print the analytics report filter defaults",
		Long:  "Print the filters the analytics report opens with, including the twelve month window ending at the latest reading.",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, release, err := e.backends(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			if b.Defaults == nil {
				return errBackendMissing
			}
			f, err := b.Defaults.Defaults(cmd.Context())
			if err != nil {
				return err
			}
			return e.print(cmd.OutOrStdout(), defaultsOutput{
				TreeType:      f.TreeType,
				ValueField:    f.ValueField,
				FromDate:      f.FromDate,
				ToDate:        f.ToDate,
				Range:         f.Range,
				MonitorRegion: f.MonitorRegion,
			})
		},
	}
}
