package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbourn/hoststand/internal/services"
	"github.com/tbourn/hoststand/internal/sweeper"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one housekeeping pass: late reservations to no-show, expired idempotency keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openStore(cfg, false)
			if err != nil {
				return err
			}
			defer closeStore(db)

			f, err := newFloor(cfg, services.Deps{DB: db})
			if err != nil {
				return err
			}
			sw := &sweeper.Sweeper{Tasks: f.SweepTasks()}
			n := sw.Once(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "sweep changed %d records\n", n)
			return nil
		},
	}
}
