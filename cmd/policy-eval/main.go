package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dreschagin/mission-control/internal/application/dto"
	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/service"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
	s3storage "github.com/dreschagin/mission-control/internal/infrastructure/storage/s3"
	"github.com/dreschagin/mission-control/pkg/config"
	"github.com/dreschagin/mission-control/pkg/logger"
)

// Exit codes: 0 evaluated, 1 usage or input error, 2 alert state is RED.
const exitRed = 2

func main() {
	var (
		file   = flag.String("f", "-", "snapshot JSON file, - for stdin")
		s3Key  = flag.String("s3-key", "", "read an archived snapshot from S3 instead of a file")
		nowArg = flag.String("now", "", "evaluation time in RFC3339, defaults to the current time")
		pretty = flag.Bool("pretty", true, "indent JSON output")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithWriter(cfg.Log.Level, os.Stderr)

	now := time.Now()
	if *nowArg != "" {
		now, err = time.Parse(time.RFC3339, *nowArg)
		if err != nil {
			log.Error("Invalid -now value", err)
			os.Exit(1)
		}
	}

	raw, err := readSnapshot(*file, *s3Key, cfg)
	if err != nil {
		log.Error("Failed to read snapshot", err)
		os.Exit(1)
	}

	var snapshot entity.MetricsSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		log.Error("Failed to decode snapshot", err)
		os.Exit(1)
	}

	sites, err := cfg.Failover.FailoverSites()
	if err != nil {
		log.Error("Failed to load failover sites", err)
		os.Exit(1)
	}
	engine := service.NewAlertPolicyEngine(cfg.Policy, service.ScheduleFailoverTargets(sites, now))

	capturedAt := snapshot.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = now
	}
	result := engine.Evaluate(&snapshot, now)
	out := dto.FromEvaluation(entity.NewEvaluation(result, capturedAt))

	encoder := json.NewEncoder(os.Stdout)
	if *pretty {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(out); err != nil {
		log.Error("Failed to write evaluation", err)
		os.Exit(1)
	}

	log.Debug("Snapshot evaluated",
		"alert_state", result.Decision.AlertState.String(),
		"red_count", result.Decision.RedCount,
		"breaches", len(result.Breaches),
	)

	if result.Decision.AlertState == valueobject.AlertRed {
		os.Exit(exitRed)
	}
}

func readSnapshot(file, s3Key string, cfg *config.Config) ([]byte, error) {
	if s3Key != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		archive, err := s3storage.NewSnapshotArchive(ctx, s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			KeyPrefix:       cfg.S3.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return archive.GetSnapshot(ctx, s3Key)
	}

	if file == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(file)
}
