// Package main serves the variation HTTP API from AWS Lambda behind an API
// Gateway HTTP API (payload format 2.0).
//
// Jobs live in the memory of a warm execution environment, so clients should
// expect a 404 for a job ID once the environment is recycled. Lambda freezes
// the environment between invocations, so a batch only advances while
// requests (typically status polls) are in flight. Archives are
// published to VARIATOR_S3_BUCKET when it is set, since API Gateway caps
// response payloads.
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-variator/internal/config"
	"github.com/fpang/photo-variator/internal/jobs"
	"github.com/fpang/photo-variator/internal/logging"
	"github.com/fpang/photo-variator/internal/s3util"
	"github.com/fpang/photo-variator/internal/server"
	"github.com/fpang/photo-variator/internal/variation"
)

// Build-time version identity, injected via -ldflags.
var commitHash = "dev"

var handler http.Handler

func init() {
	logging.Init()
	initStart := time.Now()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var publisher server.ArchivePublisher
	if cfg.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load AWS config")
		}
		publisher = s3util.NewFromConfig(awsCfg, cfg.S3Bucket, cfg.PresignExpiry)
	}

	mgr := jobs.NewManager(variation.NewGenerator(cfg.GeneratorOptions()), jobs.Options{
		TTL:     cfg.JobTTL,
		Surface: "lambda",
	})
	go mgr.RunSweeper(context.Background(), time.Minute)

	handler = server.New(cfg, mgr, publisher, commitHash).Handler()

	// Emit consolidated cold-start log for troubleshooting.
	logging.NewStartupLogger("variator-lambda").
		Version(commitHash).
		InitDuration(time.Since(initStart)).
		S3Bucket("archives", cfg.S3Bucket).
		Feature("strictModes", cfg.StrictModes).
		Config("defaultMode", cfg.Mode).
		Config("maxCount", fmt.Sprint(cfg.MaxCount)).
		Config("maxUploadMB", fmt.Sprint(cfg.MaxUploadMB)).
		Log()
}

func main() {
	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}
