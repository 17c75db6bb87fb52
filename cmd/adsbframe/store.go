package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"adsbframe/internal/adsb"
	"adsbframe/internal/storage"
)

func openStore(path string) (*storage.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("--store is required")
	}
	return storage.Open(path)
}

func newQueryCommand(stdout io.Writer) *cobra.Command {
	var (
		storePath string
		address   string
		df        int
		kind      string
		limit     int
		desc      bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List frames from a SQLite store",
		Example: `  adsbframe query --store frames.db --address 4840d6
  adsbframe query --store frames.db --df 17 --kind identification --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := storage.QueryParams{
				MessageKind: kind,
				Limit:       limit,
				OrderDesc:   desc,
			}
			if address != "" {
				a, err := adsb.ParseAddress(address)
				if err != nil {
					return err
				}
				params.Address = a.String()
			}
			if df >= 0 {
				if df > 31 {
					return fmt.Errorf("invalid df %d (must be 0-31)", df)
				}
				v := uint8(df)
				params.DF = &v
			}

			db, err := openStore(storePath)
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := db.Query(params)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				for _, r := range records {
					fmt.Fprintln(stdout, r.DecodedJSON)
				}
			case "text":
				for _, r := range records {
					writeRecordText(stdout, r)
				}
			default:
				return fmt.Errorf("invalid format: %s (must be text or json)", format)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&storePath, "store", "", "SQLite database to read")
	flags.StringVar(&address, "address", "", "Only frames from this ICAO address")
	flags.IntVar(&df, "df", -1, "Only frames with this downlink format")
	flags.StringVar(&kind, "kind", "", "Only extended squitters with this message kind")
	flags.IntVar(&limit, "limit", 100, "Maximum number of frames")
	flags.BoolVar(&desc, "desc", false, "Newest first")
	flags.StringVar(&format, "format", "text", "Output format: text, json")
	return cmd
}

func writeRecordText(w io.Writer, r storage.Record) {
	fmt.Fprintf(w, "%d %s %s df=%d addr=%s crc=%t %s",
		r.ID, r.Received.Format("2006-01-02T15:04:05.000Z07:00"), r.RawHex, r.DF, r.Address, r.CRCMatch, r.PayloadKind)
	if r.MessageKind != "" {
		fmt.Fprintf(w, " tc=%d %s", r.TypeCode, r.MessageKind)
	}
	if r.SignalLevel.Valid {
		fmt.Fprintf(w, " sig=%.3f", r.SignalLevel.Float64)
	}
	fmt.Fprintln(w)
}

func newStatsCommand(stdout io.Writer) *cobra.Command {
	var (
		storePath string
		format    string
	)

	cmd := &cobra.Command{
		Use:     "stats",
		Short:   "Summarise the frames in a SQLite store",
		Example: "  adsbframe stats --store frames.db",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(storePath)
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := db.GetStats()
			if err != nil {
				return err
			}

			switch format {
			case "json":
				data, err := json.MarshalIndent(stats, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, string(data))
			case "text":
				writeStatsText(stdout, stats)
			default:
				return fmt.Errorf("invalid format: %s (must be text or json)", format)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&storePath, "store", "", "SQLite database to read")
	flags.StringVar(&format, "format", "text", "Output format: text, json")
	return cmd
}

func writeStatsText(w io.Writer, stats *storage.Stats) {
	fmt.Fprintf(w, "Total frames:   %d\n", stats.TotalFrames)
	fmt.Fprintf(w, "CRC mismatches: %d\n", stats.CRCMismatches)

	dfs := make([]int, 0, len(stats.ByDF))
	for df := range stats.ByDF {
		dfs = append(dfs, int(df))
	}
	sort.Ints(dfs)
	fmt.Fprintln(w, "By downlink format:")
	for _, df := range dfs {
		fmt.Fprintf(w, "  df%-2d %d\n", df, stats.ByDF[uint8(df)])
	}

	kinds := make([]string, 0, len(stats.ByMessageKind))
	for kind := range stats.ByMessageKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	fmt.Fprintln(w, "By message kind:")
	for _, kind := range kinds {
		fmt.Fprintf(w, "  %-20s %d\n", kind, stats.ByMessageKind[kind])
	}
}
