package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/cexll/homework-bot/internal/config"
	"github.com/cexll/homework-bot/internal/logging"
	"github.com/cexll/homework-bot/internal/practicum"
	"github.com/cexll/homework-bot/internal/verdict"
)

const toolName = "get_homework_statuses"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP stream, logs go to stderr
	logger, err := logging.NewWithWriter(os.Getenv("LOG_LEVEL"), os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	tool, err := newStatusToolFromEnv(logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting homework status MCP server on stdio")
	if err := newServer(tool).Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newServer(tool *statusTool) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "homework-status-server",
		Version: "v1.0.0",
	}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        toolName,
		Description: "Fetch homework review statuses changed since from_date (unix seconds) and return the verdict messages",
	}, tool.Handle)
	return server
}

func newStatusToolFromEnv(logger *zap.Logger) (*statusTool, error) {
	token := os.Getenv("PRACTICUM_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("%w: PRACTICUM_TOKEN", config.ErrMissingVariables)
	}
	endpoint := strings.TrimSpace(os.Getenv("PRACTICUM_ENDPOINT"))
	if endpoint == "" {
		endpoint = config.DefaultEndpoint
	}

	catalog, err := verdict.LoadFile(os.Getenv("VERDICTS_FILE"))
	if err != nil {
		return nil, err
	}

	client := practicum.NewClient(endpoint, token, practicum.WithLogger(logger.Named("practicum")))
	return &statusTool{
		client:  client,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}, nil
}
