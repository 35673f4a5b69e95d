package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage uploaded files",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded files",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()
		files, err := client.ListFiles(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list files: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSIZE")
		for _, f := range files {
			fmt.Fprintf(w, "%s\t%s\t%d\n", f.ID, f.Name, f.Size)
		}
		return w.Flush()
	},
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a file for use as prompt context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()

		client := newAPIClient()
		info, err := client.UploadFile(cmd.Context(), filepath.Base(args[0]), f)
		if err != nil {
			return fmt.Errorf("failed to upload file: %w", err)
		}
		fmt.Println("Uploaded", info.Name, "as", info.ID)
		return nil
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete <file-id>",
	Short: "Delete an uploaded file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()
		if err := client.DeleteFile(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		fmt.Println("Deleted", args[0])
		return nil
	},
}

func init() {
	filesCmd.AddCommand(filesListCmd, filesUploadCmd, filesDeleteCmd)
	rootCmd.AddCommand(filesCmd)
}
