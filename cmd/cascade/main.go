// Command cascade is the Lambda function attached to the directories table
// stream. It deletes the subtree of deleted directories and keeps each
// parent's embedded copy of its sub-directories current.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/directories/config"
	"github.com/jacentio/directories/directory"
	"github.com/jacentio/directories/store"
	"github.com/jacentio/directories/stream"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	client, err := cfg.DynamoDB(context.Background())
	if err != nil {
		logger.Error("failed to create dynamodb client", "error", err)
		os.Exit(1)
	}

	st := store.New(client, store.Config{DirectoryTable: cfg.DirectoryTable})
	svc := directory.NewService(st, directory.DefaultConfig(), logger)
	handler := stream.NewHandler(svc, logger)

	lambda.Start(handler.HandleDirectoryEvent)
}
