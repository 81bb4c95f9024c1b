package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/csvio"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/internal/timetable"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/export"
	"github.com/noah-isme/timetable-api/pkg/logger"
)

func main() {
	dir := flag.String("data", ".", "directory holding courses.csv, teachers.csv, rooms.csv, batches.csv and batch_courses.csv")
	policyPath := flag.String("policy", "", "optional YAML file overriding the generation policy")
	out := flag.String("out", "timetable.csv", "CSV output path")
	pdfOut := flag.String("pdf", "", "optional PDF output path")
	parallel := flag.Bool("parallel-lab-groups", false, "let lab groups of one batch share a cell")
	debug := flag.Bool("debug", false, "enable development logging")
	flag.Parse()

	logr, err := newLogger(*debug)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(logr, *dir, *policyPath, *out, *pdfOut, *parallel); err != nil {
		logr.Error("timetable generation aborted", zap.Error(err))
		logr.Sync() //nolint:errcheck
		os.Exit(1)
	}
}

func run(logr *zap.Logger, dir, policyPath, out, pdfOut string, parallel bool) error {
	opts, err := csvio.LoadPolicy(policyPath, timetable.DefaultOptions())
	if err != nil {
		return err
	}
	if parallel {
		opts.BatchPolicy = timetable.ParallelLabGroups
	}

	snap, err := csvio.LoadSnapshot(dir)
	if err != nil {
		return err
	}

	engine, err := timetable.New(opts)
	if err != nil {
		return err
	}
	started := time.Now()
	result, err := engine.Generate(snap)
	if err != nil {
		return err
	}

	exports := service.NewExportService(nil, nil, nil, nil, service.ExportConfig{Options: opts}, logr, export.NewCSVExporter(), export.NewPDFExporter())
	if err := writeExport(exports, "csv", out, result); err != nil {
		return err
	}
	if pdfOut != "" && len(result.Timetable) > 0 {
		if err := writeExport(exports, "pdf", pdfOut, result); err != nil {
			return err
		}
	}

	logr.Info("timetable generated",
		zap.Bool("success", result.Success),
		zap.Int("total_units", result.TotalUnits),
		zap.Int("placed", len(result.Timetable)),
		zap.Int("failed", result.FailedAssignmentsCount),
		zap.String("batch_policy", string(opts.BatchPolicy)),
		zap.Duration("duration", time.Since(started)),
	)
	for _, unit := range result.Backlog {
		logr.Warn("unit not placed",
			zap.String("batch_id", unit.Batch.ID),
			zap.String("course_id", unit.Course.ID),
			zap.String("group", unit.Group),
			zap.Int("occurrence", unit.Occurrence),
		)
	}

	for _, room := range timetable.RoomUtilization(result.Timetable, snap.Rooms, opts) {
		logr.Debug("room utilization", zap.String("room", room.RoomNumber), zap.Int("used", room.UsedSlots), zap.Float64("percentage", room.Percentage))
	}
	return nil
}

func writeExport(exports *service.ExportService, format, path string, result *timetable.Result) error {
	payload, err := exports.Render(format, result.Timetable)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return logger.Build(config.EnvDevelopment, "debug", "console")
	}
	return logger.Build(config.EnvProduction, "info", "console")
}
