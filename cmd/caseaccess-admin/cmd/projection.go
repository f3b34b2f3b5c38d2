package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caseaccessio/api/internal/app"
	"github.com/caseaccessio/api/internal/config"
	"github.com/caseaccessio/api/internal/infra/postgres"
	"github.com/caseaccessio/api/pkg/domain/access"
	"github.com/caseaccessio/api/pkg/logger"
)

var projectionCmd = &cobra.Command{
	Use:   "projection",
	Short: "Manage the access projection",
}

var projectionRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Replay all assignment streams into the access projection",
	Long: `Replay every assignment stream through the projection. The replay is
idempotent; records removed by later events stay removed. Run this after
restoring the projection table or when records have drifted from the
streams.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		policy, err := config.LoadPolicy(cfg.Policy.Path)
		if err != nil {
			return err
		}
		allowlist, err := policy.Allowlist()
		if err != nil {
			return err
		}

		log := logger.NewDefault()
		store := postgres.NewEventStore(db)
		projector := access.NewService(postgres.NewAccessRecordRepository(db), log)
		assignments := app.NewAssignmentService(
			store, allowlist, nil, projector, nil, policy.HearingExpiryPolicy(), log)

		streams, err := store.ListStreams(cmd.Context(), "assignment:")
		if err != nil {
			return err
		}

		var failed int
		for _, streamID := range streams {
			if err := assignments.ReplayStream(cmd.Context(), streamID); err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "replay %s: %v\n", streamID, err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "replayed %d streams, %d failed\n", len(streams)-failed, failed)
		if failed > 0 {
			return fmt.Errorf("%d streams failed to replay", failed)
		}
		return nil
	},
}

func init() {
	projectionCmd.AddCommand(projectionRebuildCmd)
}
