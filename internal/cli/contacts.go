package cli

import (
	"fmt"
	"os"

	"recording-relay/internal/media"

	"github.com/spf13/cobra"
)

func newContactsCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage the contacts index",
	}
	cmd.AddCommand(newContactsImportCommand(root))
	return cmd
}

func newContactsImportCommand(root *RootOptions) *cobra.Command {
	var indexPath string

	cmd := &cobra.Command{
		Use:   "import <contacts.yaml>",
		Short: "Upsert contacts from a YAML file into the media index",
		Long: `Upsert contacts into the SQLite media index used for caller lookup.

The file has the shape:

  contacts:
    - name: Jane Doe
      phone: "+1 (555) 010-2030"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContactsImport(root, indexPath, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&indexPath, "index", envOr("MEDIA_INDEX_PATH", "media.db"), "media index path (default $MEDIA_INDEX_PATH)")
	return cmd
}

func runContactsImport(root *RootOptions, indexPath, file string, cmd *cobra.Command) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open contacts file: %w", err)
	}
	defer f.Close()

	db, err := media.OpenDB(indexPath)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	n, err := media.ImportContacts(cmd.Context(), db, f)
	if err != nil {
		return err
	}

	p := printer{format: root.Format, w: cmd.OutOrStdout()}
	if p.isJSON() {
		return p.json(map[string]any{"imported": n, "index": indexPath})
	}
	p.linef("imported %d contact(s) into %s", n, indexPath)
	return nil
}
