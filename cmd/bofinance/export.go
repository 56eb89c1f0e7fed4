package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tm-quang/bofinance-sub000/internal/export"
	"github.com/tm-quang/bofinance-sub000/internal/session"
	"github.com/tm-quang/bofinance-sub000/internal/timeutil"
)

var (
	exportUserID int64
	exportOutDir string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump a user's tasks, reminders and transactions to CSV files",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := buildStack()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		user, err := st.users.FindByTelegramID(ctx, exportUserID)
		if err != nil {
			return fmt.Errorf("find user %d: %w", exportUserID, err)
		}
		ctx = session.WithUser(ctx, user)

		outDir := exportOutDir
		if outDir == "" {
			outDir = st.cfg.ExportDir
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}

		now := timeutil.Now()
		files := []struct {
			entity string
			render func(context.Context) ([]byte, error)
		}{
			{"cong_viec", st.exporter.Tasks},
			{"nhac_nho", st.exporter.Reminders},
			{"giao_dich", st.exporter.Transactions},
		}

		for _, file := range files {
			data, err := file.render(ctx)
			if err != nil {
				return fmt.Errorf("export %s: %w", file.entity, err)
			}
			path := filepath.Join(outDir, export.Filename(file.entity, now))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().Int64Var(&exportUserID, "user", 0, "telegram id of the user to export")
	exportCmd.Flags().StringVar(&exportOutDir, "out", "", "output directory (defaults to export_dir from config)")
	exportCmd.MarkFlagRequired("user")
}
