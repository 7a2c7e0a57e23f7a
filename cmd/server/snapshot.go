package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gemini-replica/internal/persist"
)

func runSnapshotShow(cmd *cobra.Command, args []string) error {
	backend, closeBackend, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	data, err := backend.Load(cmd.Context(), cfg.SnapshotKey)
	if errors.Is(err, persist.ErrNotFound) {
		fmt.Fprintf(cmd.OutOrStdout(), "no snapshot stored under %q\n", cfg.SnapshotKey)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	snap, err := persist.Decode(data)
	if err != nil {
		// show the raw bytes so a broken snapshot can still be inspected
		logger.Warn("Stored snapshot is malformed", zap.Error(err))
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runSnapshotReset(cmd *cobra.Command, args []string) error {
	backend, closeBackend, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	err = backend.Delete(cmd.Context(), cfg.SnapshotKey)
	if errors.Is(err, persist.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to reset")
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}

	logger.Info("Snapshot deleted", zap.String("key", cfg.SnapshotKey))
	fmt.Fprintln(cmd.OutOrStdout(), "snapshot deleted")
	return nil
}
