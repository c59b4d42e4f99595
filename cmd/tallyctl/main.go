// Command tallyctl inspects and edits the persisted device record offline.
//
//	tallyctl [--region path] dump
//	tallyctl [--region path] write -f record.yaml
//	tallyctl [--region path] wipe
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/KevinKickass/OpenTallyCore/internal/storage"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "tallyctl:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("tallyctl", pflag.ContinueOnError)
	region := flags.String("region", "/var/lib/tallycore/region.bin", "persisted region file")
	size := flags.Int("region-size", storage.DefaultRegionSize, "region size in bytes")
	file := flags.StringP("file", "f", "", "record file for write (YAML)")
	showSecret := flags.Bool("show-secret", false, "include the network secret in dump output")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("usage: tallyctl [flags] dump|write|wipe")
	}

	medium, err := storage.NewFileMedium(*region, *size)
	if err != nil {
		return err
	}
	store, err := storage.NewStore(medium, zap.NewNop())
	if err != nil {
		return err
	}

	switch cmd := flags.Arg(0); cmd {
	case "dump":
		return dump(store, *showSecret, stdout)
	case "write":
		if err := write(store, *file, stdout); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "record written to %s\n", medium.Path())
		return nil
	case "wipe":
		if err := store.Wipe(); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "record wiped")
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func dump(store *storage.Store, showSecret bool, stdout io.Writer) error {
	rec, ok := store.Load()
	if !ok {
		fmt.Fprintln(stdout, "# no record")
		return nil
	}
	if !showSecret && rec.NetworkSecret != "" {
		rec.NetworkSecret = "********"
	}

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return enc.Close()
}

func write(store *storage.Store, path string, stdout io.Writer) error {
	if path == "" {
		return errors.New("write needs -f record.yaml")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var rec storage.Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if rec.NetworkName == "" {
		return errors.New("network_name is required")
	}
	if truncated := rec.Truncated(); truncated != rec {
		fmt.Fprintln(stdout, "warning: fields longer than their slots were truncated")
	}

	return store.Save(rec)
}
