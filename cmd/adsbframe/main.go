package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"adsbframe/internal/app"
)

// flagKeys binds command line flags to configuration keys.
var flagKeys = map[string]string{
	"config":         "config",
	"input":          "input.path",
	"input-format":   "input.format",
	"output":         "output.format",
	"output-dir":     "output.dir",
	"utc":            "output.utc",
	"max-age-days":   "output.max_age_days",
	"store":          "store.path",
	"batch-size":     "store.batch_size",
	"flush-interval": "store.flush_interval",
	"drop-bad-crc":   "decode.drop_bad_crc",
	"log-level":      "log.level",
	"log-format":     "log.format",
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()
	var showVersion bool

	rootCmd := &cobra.Command{
		Use:   "adsbframe [hex frames...]",
		Short: "Mode S / ADS-B frame decoder",
		Long: `Decodes 56 and 112 bit Mode S frames into structured records.

Frames are read from the arguments, or else from the configured input: hex
lines (bare or AVR *...; framing) or a Beast binary stream, from stdin, a
file, or a tcp:// feed. Records are written as JSON lines, text or
BaseStation (SBS) lines, and optionally stored in SQLite.

Example usage:
  adsbframe 8D4840D6202CC371C32CE0576098
  nc localhost 30005 | adsbframe --input-format beast --output sbs
  adsbframe --input tcp://localhost:30002 --store frames.db
  adsbframe stats --store frames.db`,
		// Frames are positional, so unknown words are not subcommands.
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				app.ShowVersion(stdout)
				return nil
			}

			cfg, err := app.Load(v)
			if err != nil {
				return err
			}

			logger := app.NewLogger(cfg.Log, stderr)
			application := app.NewApplication(*cfg, logger)
			application.SetIO(stdin, stdout)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return application.Run(ctx, args)
		},
	}

	flags := rootCmd.Flags()
	flags.String("config", "", "Path to config file (YAML)")
	flags.StringP("input", "i", app.DefaultInputPath, `Input: "-" for stdin, a file, or tcp://host:port`)
	flags.StringP("input-format", "f", app.InputHex, "Input format (hex, beast)")
	flags.StringP("output", "o", app.OutputJSON, "Output format (json, text, sbs)")
	flags.StringP("output-dir", "d", "", "Write daily rotated output files to this directory instead of stdout")
	flags.BoolP("utc", "u", true, "Use UTC for output rotation")
	flags.Int("max-age-days", app.DefaultMaxAgeDays, "Remove rotated output files older than this many days (0 keeps all)")
	flags.String("store", "", "SQLite database to store decoded frames in")
	flags.Int("batch-size", app.DefaultBatchSize, "Frames per SQLite insert batch")
	flags.Duration("flush-interval", app.DefaultFlushInterval, "Store a partial batch after this long (0 waits for a full batch)")
	flags.Bool("drop-bad-crc", false, "Discard extended squitters whose CRC does not match")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")
	flags.BoolVar(&showVersion, "version", false, "Show version information")

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}

	rootCmd.AddCommand(newQueryCommand(stdout), newStatsCommand(stdout))

	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd
}

func main() {
	rootCmd := newRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
