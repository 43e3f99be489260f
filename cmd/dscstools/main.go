package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kesshi/dscstools/internal/archive"
	"github.com/kesshi/dscstools/internal/audiobank"
	"github.com/kesshi/dscstools/internal/config"
	"github.com/kesshi/dscstools/internal/dialect"
	"github.com/kesshi/dscstools/internal/logging"
	"github.com/kesshi/dscstools/internal/savecrypt"
	"github.com/kesshi/dscstools/internal/schema"
	"github.com/kesshi/dscstools/internal/table"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dscstools",
	Short: "Pack and unpack DSCS-family archives, table files, and audio banks",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().String("game", "dscs", "dialect: dscs, dscs-console, dsts, thl")
	rootCmd.PersistentFlags().String("schema-dir", "", "table schema directory (structure.json root)")
	rootCmd.PersistentFlags().Int("workers", 0, "concurrency limit (0 = unbounded)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-output-dir", "", "directory to write log files (if set, logs are written to both stdout and file)")
	rootCmd.PersistentFlags().Bool("dry-run", false, "validate without writing output")

	viper.BindPFlag("game", rootCmd.PersistentFlags().Lookup("game"))
	viper.BindPFlag("schema_dir", rootCmd.PersistentFlags().Lookup("schema-dir"))
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_output_dir", rootCmd.PersistentFlags().Lookup("log-output-dir"))
	viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))

	packArchiveCmd.Flags().String("compress", "normal", "none, normal, advanced")
	viper.BindPFlag("compress", packArchiveCmd.Flags().Lookup("compress"))

	unpackArchiveCmd.Flags().String("file", "", "extract only this one relative path")
	viper.BindPFlag("file", unpackArchiveCmd.Flags().Lookup("file"))

	rootCmd.AddCommand(
		packArchiveCmd, unpackArchiveCmd,
		packTableCmd, unpackTableCmd,
		packAudioCmd, unpackAudioCmd,
		encryptSaveCmd, decryptSaveCmd,
	)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "dscstools"))
		}
		viper.AddConfigPath("/etc/dscstools")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("DSCSTOOLS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func loadConfig(source, target string) (*config.Config, dialect.Dialect, error) {
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, dialect.Dialect{}, fmt.Errorf("invalid config: %w", err)
	}
	cfg.SourcePath = source
	cfg.TargetPath = target

	if err := logging.Setup(cfg.LogLevel, cfg.LogOutputDir); err != nil {
		return nil, dialect.Dialect{}, fmt.Errorf("could not set up logging: %w", err)
	}

	d, ok := dialect.For(dialect.Game(cfg.Game))
	if !ok {
		return nil, dialect.Dialect{}, fmt.Errorf("unknown game dialect %q", cfg.Game)
	}
	return cfg, d, nil
}

var packArchiveCmd = &cobra.Command{
	Use:   "pack-archive SOURCE_DIR TARGET_FILE",
	Args:  cobra.ExactArgs(2),
	Short: "Pack a directory tree into an archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, d, err := loadConfig(args[0], args[1])
		if err != nil {
			return err
		}

		var mode archive.CompressMode
		switch cfg.CompressMode {
		case "none":
			mode = archive.CompressNone
		case "advanced":
			mode = archive.CompressAdvanced
		default:
			mode = archive.CompressNormal
		}

		slog.Info("packing archive", "source", cfg.SourcePath, "target", cfg.TargetPath, "game", cfg.Game, "compress", cfg.CompressMode)
		if cfg.DryRun {
			slog.Info("dry run: skipping write")
			return nil
		}
		if err := archive.Write(cfg.SourcePath, cfg.TargetPath, d, archive.WriteOptions{Mode: mode, Workers: cfg.Workers}); err != nil {
			return fmt.Errorf("pack-archive: %w", err)
		}
		return nil
	},
}

var unpackArchiveCmd = &cobra.Command{
	Use:   "unpack-archive SOURCE_FILE TARGET_DIR",
	Args:  cobra.ExactArgs(2),
	Short: "Extract an archive into a directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, d, err := loadConfig(args[0], args[1])
		if err != nil {
			return err
		}

		r, err := archive.Open(cfg.SourcePath, d)
		if err != nil {
			return fmt.Errorf("unpack-archive: %w", err)
		}
		defer r.Close()

		slog.Info("unpacking archive", "source", cfg.SourcePath, "target", cfg.TargetPath, "game", cfg.Game)
		if cfg.DryRun {
			slog.Info("dry run: skipping write")
			return nil
		}

		if cfg.SingleFile != "" {
			e, ok := r.Lookup(cfg.SingleFile)
			if !ok {
				return fmt.Errorf("unpack-archive: %q not found in archive", cfg.SingleFile)
			}
			return r.ExtractOne(e, filepath.Join(cfg.TargetPath, filepath.FromSlash(cfg.SingleFile)), true)
		}

		return r.ExtractAll(cfg.TargetPath, archive.ExtractAllOptions{
			Workers:    cfg.Workers,
			Decompress: true,
			OnError: func(e archive.Entry, err error) {
				slog.Warn("failed to extract entry", "path", e.RelPath, "error", err)
			},
		})
	},
}

var packTableCmd = &cobra.Command{
	Use:   "pack-table SOURCE_CSV_DIR TARGET_FILE",
	Args:  cobra.ExactArgs(2),
	Short: "Pack a directory of CSV files into a table file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, d, err := loadConfig(args[0], args[1])
		if err != nil {
			return err
		}

		resolve := schemaResolver(cfg)
		tf, err := table.ImportCSV(cfg.SourcePath, func(name string) (table.Structure, bool) {
			return resolve(cfg.SourcePath, name)
		})
		if err != nil {
			return fmt.Errorf("pack-table: %w", err)
		}

		encoded, err := table.Write(tf, d)
		if err != nil {
			return fmt.Errorf("pack-table: %w", err)
		}

		slog.Info("packing table file", "source", cfg.SourcePath, "target", cfg.TargetPath, "tables", len(tf.Tables))
		if cfg.DryRun {
			slog.Info("dry run: skipping write")
			return nil
		}
		if err := os.WriteFile(cfg.TargetPath, encoded, 0o644); err != nil {
			return fmt.Errorf("pack-table: write %s: %w", cfg.TargetPath, err)
		}
		return nil
	},
}

var unpackTableCmd = &cobra.Command{
	Use:   "unpack-table SOURCE_FILE TARGET_CSV_DIR",
	Args:  cobra.ExactArgs(2),
	Short: "Unpack a table file into a directory of CSV files",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, d, err := loadConfig(args[0], args[1])
		if err != nil {
			return err
		}

		data, err := os.ReadFile(cfg.SourcePath)
		if err != nil {
			return fmt.Errorf("unpack-table: read %s: %w", cfg.SourcePath, err)
		}

		resolve := schemaResolver(cfg)
		tf, err := table.Read(data, d, func(name string) (table.Structure, bool) {
			return resolve(cfg.SourcePath, name)
		})
		if err != nil {
			return fmt.Errorf("unpack-table: %w", err)
		}

		slog.Info("unpacking table file", "source", cfg.SourcePath, "target", cfg.TargetPath, "tables", len(tf.Tables))
		if cfg.DryRun {
			slog.Info("dry run: skipping write")
			return nil
		}
		if err := os.MkdirAll(cfg.TargetPath, 0o755); err != nil {
			return fmt.Errorf("unpack-table: create %s: %w", cfg.TargetPath, err)
		}
		if err := table.ExportCSV(tf, cfg.TargetPath); err != nil {
			return fmt.Errorf("unpack-table: %w", err)
		}
		return nil
	},
}

// schemaResolver returns a no-op resolver when no --schema-dir is
// configured, or one backed by a loaded *schema.Registry otherwise.
func schemaResolver(cfg *config.Config) func(sourcePath, tableName string) (table.Structure, bool) {
	if cfg.SchemaDir == "" {
		return func(string, string) (table.Structure, bool) { return table.Structure{}, false }
	}
	reg, err := schema.Load(cfg.SchemaDir)
	if err != nil {
		slog.Warn("failed to load schema registry, falling back to inferred types", "schema_dir", cfg.SchemaDir, "error", err)
		return func(string, string) (table.Structure, bool) { return table.Structure{}, false }
	}
	return reg.Resolve
}

var packAudioCmd = &cobra.Command{
	Use:   "pack-audio SOURCE_DIR TARGET_FILE",
	Args:  cobra.ExactArgs(2),
	Short: "Concatenate a directory of audio clips into a bank",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(args[0], args[1])
		if err != nil {
			return err
		}

		packed, err := audiobank.Pack(cfg.SourcePath)
		if err != nil {
			return fmt.Errorf("pack-audio: %w", err)
		}

		slog.Info("packing audio bank", "source", cfg.SourcePath, "target", cfg.TargetPath)
		if cfg.DryRun {
			slog.Info("dry run: skipping write")
			return nil
		}
		return os.WriteFile(cfg.TargetPath, packed, 0o644)
	},
}

var unpackAudioCmd = &cobra.Command{
	Use:   "unpack-audio SOURCE_FILE TARGET_DIR",
	Args:  cobra.ExactArgs(2),
	Short: "Split an audio bank back into numbered clips",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(args[0], args[1])
		if err != nil {
			return err
		}

		data, err := os.ReadFile(cfg.SourcePath)
		if err != nil {
			return fmt.Errorf("unpack-audio: read %s: %w", cfg.SourcePath, err)
		}

		slog.Info("unpacking audio bank", "source", cfg.SourcePath, "target", cfg.TargetPath)
		if cfg.DryRun {
			slog.Info("dry run: skipping write")
			return nil
		}
		if err := audiobank.Unpack(data, cfg.TargetPath); err != nil {
			return fmt.Errorf("unpack-audio: %w", err)
		}
		return nil
	},
}

var encryptSaveCmd = &cobra.Command{
	Use:   "encrypt-save SOURCE_FILE TARGET_FILE",
	Args:  cobra.ExactArgs(2),
	Short: "Encrypt a save file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSaveCrypt(args[0], args[1], savecrypt.Encrypt)
	},
}

var decryptSaveCmd = &cobra.Command{
	Use:   "decrypt-save SOURCE_FILE TARGET_FILE",
	Args:  cobra.ExactArgs(2),
	Short: "Decrypt a save file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSaveCrypt(args[0], args[1], savecrypt.Decrypt)
	},
}

func runSaveCrypt(source, target string, op func([]byte) ([]byte, error)) error {
	cfg, _, err := loadConfig(source, target)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cfg.SourcePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", cfg.SourcePath, err)
	}

	out, err := op(data)
	if err != nil {
		return err
	}

	slog.Info("crypting save file", "source", cfg.SourcePath, "target", cfg.TargetPath)
	if cfg.DryRun {
		slog.Info("dry run: skipping write")
		return nil
	}
	return os.WriteFile(cfg.TargetPath, out, 0o644)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
