// Command workforce-import reads assignment rows from a CSV file, validates
// them against a workforce project's reference data and submits them as new
// assignments, with optional file attachments.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"workforce-import/internal/common/arcgis"
	"workforce-import/internal/common/config"
	"workforce-import/internal/common/errors"
	"workforce-import/internal/common/logger"
	"workforce-import/internal/importer"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "workforce-import",
		Short:         "Add assignments to a workforce project from a CSV file",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				fmt.Fprintf(os.Stderr, "workforce-import: %v\n", err)
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("username", "", "username to authenticate with")
	flags.String("password", "", "password to authenticate with")
	flags.String("org-url", "", "url of the org/portal to use")
	flags.String("project-id", "", "id of the project to add assignments to")
	flags.String("csv-file", "", "path of the CSV file to read")
	flags.String("x-field", "", "column that contains the x coordinate")
	flags.String("y-field", "", "column that contains the y coordinate")
	flags.String("assignment-type-field", "", "column that contains the assignment type code")
	flags.String("location-field", "", "column that contains the location")
	flags.String("dispatcher-id-field", "", "column that contains the dispatcher id")
	flags.String("description-field", "", "column that contains the description")
	flags.String("priority-field", "", "column that contains the priority code")
	flags.String("work-order-id-field", "", "column that contains the work order id")
	flags.String("due-date-field", "", "column that contains the due date")
	flags.String("worker-field", "", "column that contains the worker username")
	flags.String("attachment-file-field", "", "column that contains the attachment file path")
	flags.String("date-format", "01/02/2006 15:04:05", "Go layout the due dates are in")
	flags.Int("wkid", 4326, "spatial reference of the x,y values")
	flags.String("timezone", "UTC", "timezone the due dates are in")
	flags.String("log-level", "info", "console log level (debug, info, warn, error)")
	flags.String("log-file", "", "log file to write to")

	for _, name := range []string{
		"username", "password", "org-url", "project-id", "csv-file",
		"x-field", "y-field", "assignment-type-field", "location-field",
		"log-file",
	} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	zapLog := logger.New(cfg.Logging.Level, logger.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"runId": uuid.NewString(),
	})

	res, err := execute(ctx, cfg, log)
	if err != nil {
		stdErr := errors.AsStandard(err)
		zapLog.Error("Import failed, no partial results are kept",
			zap.String("code", string(stdErr.Code)),
			zap.String("message", stdErr.Message),
			zap.String("details", stdErr.Details),
			zap.Any("metadata", stdErr.Metadata),
			zap.Stack("stack"),
		)
		return err
	}

	log.Info("Import finished", map[string]interface{}{
		"submitted":   res.Submitted,
		"assigned":    res.Assigned,
		"attachments": res.Attachments,
	})
	return nil
}

func execute(ctx context.Context, cfg *config.Config, log logger.Logger) (*importer.Result, error) {
	client := arcgis.NewClient(cfg.Portal.OrgURL, time.Duration(cfg.Portal.TimeoutSeconds)*time.Second)

	log.Info("Authenticating", map[string]interface{}{
		"orgUrl":   cfg.Portal.OrgURL,
		"username": cfg.Portal.Username,
	})
	if err := client.Authenticate(ctx, cfg.Portal.Username, cfg.Portal.Password); err != nil {
		return nil, err
	}

	log.Info("Resolving project layers", map[string]interface{}{
		"projectId": cfg.Portal.ProjectID,
	})
	project, err := client.ProjectData(ctx, cfg.Portal.ProjectID)
	if err != nil {
		return nil, err
	}

	service := importer.NewService(importer.ServiceDependencies{
		Logger:      log,
		Assignments: client.Layer(project.Assignments.URL),
		Dispatchers: client.Layer(project.Dispatchers.URL),
		Workers:     client.Layer(project.Workers.URL),
	}, importer.ParserConfig{
		CSVFile:    cfg.CSV.File,
		Fields:     cfg.CSV.Fields,
		DateFormat: cfg.CSV.DateFormat,
		WKID:       cfg.CSV.WKID,
		Timezone:   cfg.CSV.Timezone,
	}, cfg.Portal.Username)

	return service.Run(ctx)
}
