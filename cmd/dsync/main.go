package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"dsync/internal/app"
	"dsync/internal/config"
	"dsync/internal/model"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Sync", "AddSource").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "dsync",
	Short: "Synchronize remote data sources into a local content store",
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

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
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

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Database: %s (%s)\n", cfg.Database.Type, cfg.Database.DataDir)
		return nil
	},
}

// source command
var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage data sources",
}

var sourceAddCmd = &cobra.Command{
	Use:   "add NAME URL",
	Short: "Register a data source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		rawParams, _ := cmd.Flags().GetStringArray("param")
		ignores, _ := cmd.Flags().GetStringArray("ignore")
		disabled, _ := cmd.Flags().GetBool("disabled")

		params, err := parseParams(rawParams)
		if err != nil {
			return err
		}

		// Git sources with a username need a password; prompt without echo
		// rather than requiring it on the command line.
		if model.SourceType(typ) == model.SourceTypeGit {
			if _, hasUser := params["username"]; hasUser {
				if _, hasPass := params["password"]; !hasPass {
					fmt.Fprint(os.Stderr, "Password: ")
					pw, err := term.ReadPassword(int(syscall.Stdin))
					fmt.Fprintln(os.Stderr)
					if err != nil {
						return fmt.Errorf("reading password: %w", err)
					}
					params["password"] = string(pw)
				}
			}
		}

		a, err := newApp("AddSource")
		if err != nil {
			return err
		}
		defer a.Close()

		src, err := a.AddSource(cmd.Context(), args[0], model.SourceType(typ), args[1],
			params, strings.Join(ignores, "\n"), !disabled)
		if err != nil {
			return fmt.Errorf("adding source: %w", err)
		}

		fmt.Printf("Added data source %s (%s)\n", src.Name, src.Type)
		return nil
	},
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List data sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListSources")
		if err != nil {
			return err
		}
		defer a.Close()

		sources, err := a.ListSources(cmd.Context())
		if err != nil {
			return err
		}

		if len(sources) == 0 {
			fmt.Println("No data sources configured.")
			return nil
		}

		for _, src := range sources {
			enabled := " "
			if !src.Enabled {
				enabled = "D"
			}
			lastSynced := "never"
			if src.LastSynced != nil {
				lastSynced = src.LastSynced.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%s %-20s %-6s %-10s %-19s %s\n",
				enabled, src.Name, src.Type, src.Status, lastSynced, src.SourceURL)
		}
		return nil
	},
}

var sourceShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show a data source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GetSource")
		if err != nil {
			return err
		}
		defer a.Close()

		src, err := a.GetSource(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Name:    %s\n", src.Name)
		fmt.Printf("Type:    %s\n", src.Type)
		fmt.Printf("URL:     %s\n", src.SourceURL)
		fmt.Printf("Status:  %s\n", src.Status)
		fmt.Printf("Enabled: %t\n", src.Enabled)
		if src.LastSynced != nil {
			fmt.Printf("Synced:  %s\n", src.LastSynced.Format("2006-01-02 15:04:05"))
		}
		if src.IgnoreRules != "" {
			fmt.Printf("Ignore:\n")
			for _, rule := range strings.Split(src.IgnoreRules, "\n") {
				fmt.Printf("  %s\n", rule)
			}
		}
		return nil
	},
}

var sourceRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Remove a data source and its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveSource")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveSource(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed data source %s\n", args[0])
		return nil
	},
}

var sourceEnableCmd = &cobra.Command{
	Use:   "enable NAME",
	Short: "Enable a data source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], true)
	},
}

var sourceDisableCmd = &cobra.Command{
	Use:   "disable NAME",
	Short: "Disable a data source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], false)
	},
}

func setEnabled(cmd *cobra.Command, name string, enabled bool) error {
	a, err := newApp("SetSourceEnabled")
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.SetSourceEnabled(cmd.Context(), name, enabled); err != nil {
		return err
	}
	if enabled {
		fmt.Printf("Enabled data source %s\n", name)
	} else {
		fmt.Printf("Disabled data source %s\n", name)
	}
	return nil
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync NAME",
	Short: "Synchronize a data source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Sync")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SyncSource(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		fmt.Printf("Synchronized data source %s\n", args[0])
		return nil
	},
}

// files command
var filesCmd = &cobra.Command{
	Use:   "files NAME",
	Short: "List synchronized files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListFiles")
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.ListFiles(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if len(files) == 0 {
			fmt.Println("No files synchronized.")
			return nil
		}

		for _, df := range files {
			fmt.Printf("%s  %8d  %s  %s\n",
				df.Hash[:12], df.Size,
				df.LastUpdated.Format("2006-01-02 15:04:05"), df.Path)
		}
		return nil
	},
}

// cat command
var catCmd = &cobra.Command{
	Use:   "cat NAME PATH",
	Short: "Print a synchronized file's content",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GetFile")
		if err != nil {
			return err
		}
		defer a.Close()

		df, err := a.GetFile(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		os.Stdout.Write(df.Data)
		return nil
	},
}

// data command
var dataCmd = &cobra.Command{
	Use:   "data NAME PATH",
	Short: "Parse a synchronized file as YAML/JSON and print the value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GetFile")
		if err != nil {
			return err
		}
		defer a.Close()

		df, err := a.GetFile(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		value, err := df.Parse()
		if err != nil {
			return err
		}

		fmt.Printf("%v\n", value)
		return nil
	},
}

// parseParams converts repeated key=value flags into a parameter map.
func parseParams(raw []string) (map[string]string, error) {
	params := make(map[string]string, len(raw))
	for _, kv := range raw {
		key, value, found := strings.Cut(kv, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", kv)
		}
		params[key] = value
	}
	return params, nil
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// source subcommands
	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceShowCmd)
	sourceCmd.AddCommand(sourceRmCmd)
	sourceCmd.AddCommand(sourceEnableCmd)
	sourceCmd.AddCommand(sourceDisableCmd)
	sourceAddCmd.Flags().String("type", string(model.SourceTypeLocal), "Source type: local, git, or s3")
	sourceAddCmd.Flags().StringArray("param", nil, "Backend parameter (key=value, repeatable)")
	sourceAddCmd.Flags().StringArray("ignore", nil, "Ignore pattern (repeatable)")
	sourceAddCmd.Flags().Bool("disabled", false, "Create the source disabled")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(sourceCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(dataCmd)
}
