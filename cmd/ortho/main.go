package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ortho-go/internal/app"
	"ortho-go/internal/config"
	"ortho-go/internal/ortho"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an OrthoApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Upload", "DeleteFile").
func newApp(operation string) (*app.OrthoApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewOrthoApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts on the terminal without echo. ORTHO_PASSPHRASE
// is used instead when set, for scripts.
func readPassphrase(prompt string) (string, error) {
	if p := os.Getenv("ORTHO_PASSPHRASE"); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal to read the passphrase from; set ORTHO_PASSPHRASE")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// unlock asks for the passphrase when stored files are encrypted.
func unlock(a *app.OrthoApp) error {
	if !a.Encrypted() {
		return nil
	}
	p, err := readPassphrase("Passphrase: ")
	if err != nil {
		return err
	}
	return a.Unlock(p)
}

var rootCmd = &cobra.Command{
	Use:   "ortho",
	Short: "Clinic patient records storage",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Vault:      %s\n", cfg.Vault.Type)
		fmt.Printf("Staging:    %s\n", cfg.Staging.Type)
		fmt.Printf("Database:   %s\n", cfg.Database.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		fmt.Printf("Server:     %s\n", cfg.Server.Addr)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetupKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if p != confirm {
			return errors.New("passphrases do not match")
		}

		if err := a.SetupKeys(p); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Serve")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := unlock(a); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return a.Serve(ctx)
	},
}

// upload command
var uploadCmd = &cobra.Command{
	Use:   "upload OWNER CATEGORY PATH",
	Short: "Upload a file or folder",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")
		chunkSize, _ := cmd.Flags().GetInt("chunk-size")
		thumbnail, _ := cmd.Flags().GetString("thumbnail")

		a, err := newApp("Upload")
		if err != nil {
			return err
		}
		defer a.Close()

		events, cancel := a.Subscribe()
		defer cancel()
		printed := make(chan struct{})
		go func() {
			defer close(printed)
			for ev := range events {
				switch ev.Type {
				case ortho.EventError:
					fmt.Fprintf(os.Stderr, "\n%s: %s\n", ev.FileName, ev.Error)
				case ortho.EventProgress:
					fmt.Printf("\r%s %3d%%", ev.FileName, ev.Percent)
				case ortho.EventComplete:
					fmt.Printf("\r%s done\n", ev.FileName)
				}
			}
		}()

		count, err := a.UploadFiles(args[2], app.UploadOptions{
			OwnerID:       args[0],
			Category:      args[1],
			Recursive:     recursive,
			ChunkSize:     chunkSize,
			ThumbnailPath: thumbnail,
		})
		cancel()
		<-printed
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}

		fmt.Printf("Uploaded %d file(s)\n", count)
		return nil
	},
}

// files command
var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage stored files",
}

var filesListCmd = &cobra.Command{
	Use:   "list OWNER CATEGORY",
	Short: "List stored files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListFiles")
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.ListFiles(args[0], args[1])
		if err != nil {
			return err
		}

		if len(files) == 0 {
			fmt.Println("No files stored.")
			return nil
		}

		for _, f := range files {
			fmt.Printf("%s  %s  %10d  %s\n",
				f.ID,
				f.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				f.Size,
				f.Name,
			)
		}
		return nil
	},
}

var filesGetCmd = &cobra.Command{
	Use:   "get ID DEST",
	Short: "Write a stored file to DEST",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GetFile")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := unlock(a); err != nil {
			return err
		}

		out, err := os.OpenFile(args[1], os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("creating %s: %w", args[1], err)
		}
		file, err := a.GetFile(args[0], out)
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(args[1])
			return err
		}

		fmt.Printf("Wrote %s (%d bytes) to %s\n", file.Name, file.Size, args[1])
		return nil
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a stored file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteFile")
		if err != nil {
			return err
		}
		defer a.Close()

		deleted, err := a.DeleteFile(args[0])
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("no file with id %s", args[0])
		}
		fmt.Println("Deleted.")
		return nil
	},
}

// staging command
var stagingCmd = &cobra.Command{
	Use:   "staging",
	Short: "Manage staged chunks",
}

var stagingClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every staged chunk",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ClearStaging")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ClearStaging(); err != nil {
			return err
		}
		fmt.Println("Staging area cleared.")
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-8s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Records database maintenance",
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a snapshot of the records database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("BackupDatabase")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupDatabase(args[0]); err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		fmt.Printf("Database written to %s\n", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	keysCmd.AddCommand(keysInitCmd)

	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesGetCmd)
	filesCmd.AddCommand(filesDeleteCmd)

	stagingCmd.AddCommand(stagingClearCmd)

	dbCmd.AddCommand(dbBackupCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().BoolP("recursive", "r", false, "Recurse into subfolders")
	uploadCmd.Flags().Int("chunk-size", app.DefaultChunkSize, "Chunk size in bytes")
	uploadCmd.Flags().String("thumbnail", "", "Image stored as the thumbnail of uploaded videos")
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(stagingCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(dbCmd)
}
