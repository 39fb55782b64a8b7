// Package main provides the entry point for the mihcsme command-line tool.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/screendata/mihcsme/internal/config"
	"github.com/screendata/mihcsme/internal/di"
	"github.com/screendata/mihcsme/internal/errors"
	"github.com/screendata/mihcsme/internal/excel"
	"github.com/screendata/mihcsme/internal/logger"
	"github.com/screendata/mihcsme/internal/omero"
)

const usage = `mihcsme syncs MIHCSME spreadsheet metadata with an OMERO server.

Usage:
  mihcsme upload   [flags] <file.xlsx>   parse a workbook and annotate a Screen or Plate
  mihcsme download [flags]               read annotations back into the flat dict as JSON
  mihcsme delete   [flags]               remove the tool's annotations from a Screen or Plate
  mihcsme convert  [flags] <file.xlsx>   parse a workbook and print the flat dict as JSON

Run "mihcsme <command> -h" for the command's flags.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(os.Stderr, usage)
		if len(args) == 0 {
			return 1
		}
		return 0
	}

	cmd := args[0]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)

	var (
		targetType string
		targetID   int64
		outPath    string
	)
	switch cmd {
	case "upload", "download", "delete":
		fs.StringVar(&targetType, "target-type", "Screen", "Object to annotate (Screen or Plate)")
		fs.Int64Var(&targetID, "target-id", 0, "ID of the object to annotate")
	case "convert":
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 1
	}
	if cmd == "download" || cmd == "convert" {
		fs.StringVar(&outPath, "out", "", "Write JSON here instead of stdout")
	}

	cfg, err := config.LoadConfig(fs, args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitCode(err)
	}

	injector := di.NewContainer(cfg)
	log := do.MustInvoke[*logger.Logger](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "upload":
		err = runUpload(ctx, injector, cfg, fs.Arg(0), targetType, targetID)
	case "download":
		err = runDownload(ctx, injector, cfg, targetType, targetID, outPath)
	case "delete":
		err = runDelete(ctx, injector, cfg, targetType, targetID)
	case "convert":
		err = runConvert(injector, fs.Arg(0), outPath)
	}

	// Logs the session out whether the command succeeded or not.
	if shutdownErr := injector.Shutdown(); shutdownErr != nil {
		log.Warn("shutdown failed", "error", shutdownErr)
	}

	if err != nil {
		log.Error(cmd+" failed", "error", err)
		return exitCode(err)
	}
	return 0
}

func runUpload(ctx context.Context, injector do.Injector, cfg *config.Config, path, targetType string, targetID int64) error {
	objType, err := resolveTarget(targetType, targetID)
	if err != nil {
		return err
	}
	if path == "" {
		return errors.Validation("upload requires a workbook path argument")
	}

	parser := do.MustInvoke[*excel.Parser](injector)
	m, err := parser.Parse(path)
	if err != nil {
		return err
	}

	svc, err := do.Invoke[*omero.SyncService](injector)
	if err != nil {
		return err
	}
	created, err := svc.Upload(ctx, m, objType, targetID, cfg.Sync.NamespaceBase)
	if err != nil {
		return err
	}

	log := do.MustInvoke[*logger.Logger](injector)
	log.Info("uploaded metadata", "file", path, "annotations", created)
	return nil
}

func runDownload(ctx context.Context, injector do.Injector, cfg *config.Config, targetType string, targetID int64, outPath string) error {
	objType, err := resolveTarget(targetType, targetID)
	if err != nil {
		return err
	}

	svc, err := do.Invoke[*omero.SyncService](injector)
	if err != nil {
		return err
	}
	m, err := svc.Download(ctx, objType, targetID, cfg.Sync.NamespaceBase)
	if err != nil {
		return err
	}

	return writeJSON(m.ToFlatDict(), outPath)
}

func runDelete(ctx context.Context, injector do.Injector, cfg *config.Config, targetType string, targetID int64) error {
	objType, err := resolveTarget(targetType, targetID)
	if err != nil {
		return err
	}

	svc, err := do.Invoke[*omero.SyncService](injector)
	if err != nil {
		return err
	}
	deleted, err := svc.DeleteNamespace(ctx, objType, targetID, cfg.Sync.NamespaceBase+"/")
	if err != nil {
		return err
	}

	fmt.Printf("deleted %d annotations\n", deleted)
	return nil
}

func runConvert(injector do.Injector, path, outPath string) error {
	if path == "" {
		return errors.Validation("convert requires a workbook path argument")
	}

	parser := do.MustInvoke[*excel.Parser](injector)
	m, err := parser.Parse(path)
	if err != nil {
		return err
	}

	return writeJSON(m.ToFlatDict(), outPath)
}

// resolveTarget canonicalizes the target type and checks the ID.
func resolveTarget(targetType string, targetID int64) (string, error) {
	var objType string
	switch strings.ToLower(targetType) {
	case "screen":
		objType = omero.TypeScreen
	case "plate":
		objType = omero.TypePlate
	default:
		return "", errors.Validationf("invalid target type %q (must be Screen or Plate)", targetType)
	}
	if targetID <= 0 {
		return "", errors.Validation("a positive -target-id is required")
	}
	return objType, nil
}

// writeJSON renders v indented to the given file, or stdout when no
// path is set.
func writeJSON(v any, outPath string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to encode JSON")
	}
	data = append(data, '\n')

	if outPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil { //#nosec G306 -- Exported data file
		return errors.Wrap(err, errors.CodeInternal, "failed to write output file")
	}
	return nil
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		return domainErr.ExitCode()
	}
	return 1
}
