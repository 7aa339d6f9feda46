package main

import (
	"fmt"

	"github.com/Freeeeeet/tutor_slots/internal/app"
	"github.com/Freeeeeet/tutor_slots/internal/notify"
	"github.com/Freeeeeet/tutor_slots/internal/service"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark ended slots as completed once",
		Long: `Runs the same status sweep the bot runs on SWEEP_INTERVAL:
every non-cancelled slot whose end is in the past becomes completed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.OpenStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			// сам прогон событий не порождает, диспетчер нужен только конструктору
			dispatcher := notify.NewDispatcher(notify.DefaultDispatcherConfig(), logger, notify.NewLogSink(logger))
			defer dispatcher.Close()

			slots := service.NewSlotService(store, dispatcher, logger, service.WithLocation(cfg.Location))
			count, err := slots.CompleteEnded(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "completed %d slot(s)\n", count)
			return nil
		},
	}
}
