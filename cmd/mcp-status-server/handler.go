package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/cexll/homework-bot/internal/practicum"
	"github.com/cexll/homework-bot/internal/verdict"
)

// GetStatusesParams is the input of the get_homework_statuses tool.
type GetStatusesParams struct {
	FromDate int64 `json:"from_date,omitempty" jsonschema:"Unix timestamp in seconds; statuses changed after it are returned. Defaults to 30 days ago."`
}

// StatusesResult is serialized into the tool's text content.
type StatusesResult struct {
	CurrentDate int64          `json:"current_date"`
	Messages    []string       `json:"messages"`
	Skipped     []SkippedEntry `json:"skipped,omitempty"`
}

// SkippedEntry is a homework whose status could not be turned into a verdict.
type SkippedEntry struct {
	Homework string `json:"homework,omitempty"`
	Reason   string `json:"reason"`
}

type answerFetcher interface {
	GetAPIAnswer(ctx context.Context, fromDate int64) (*practicum.Answer, error)
}

type statusTool struct {
	client  answerFetcher
	catalog *verdict.Catalog
	logger  *zap.Logger
	now     func() time.Time
}

const defaultLookback = 30 * 24 * time.Hour

// Handle serves get_homework_statuses. API failures come back as tool errors
// so the calling assistant sees the reason instead of a protocol error.
func (t *statusTool) Handle(ctx context.Context, _ *mcp.CallToolRequest, params GetStatusesParams) (*mcp.CallToolResult, any, error) {
	if params.FromDate < 0 {
		return nil, nil, fmt.Errorf("from_date must not be negative")
	}
	fromDate := params.FromDate
	if fromDate == 0 {
		fromDate = t.now().Add(-defaultLookback).Unix()
	}

	log := t.logger.With(zap.Int64("from_date", fromDate))
	log.Info("received get_homework_statuses request")

	answer, err := t.client.GetAPIAnswer(ctx, fromDate)
	if err != nil {
		log.Error("failed to fetch homework statuses", zap.Error(err))
		return errorResult(err), nil, nil
	}

	result := StatusesResult{CurrentDate: answer.CurrentDate, Messages: []string{}}
	for i := len(answer.Homeworks) - 1; i >= 0; i-- {
		hw := answer.Homeworks[i]
		msg, err := practicum.ParseStatus(hw, t.catalog)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedEntry{Homework: hw.HomeworkName, Reason: err.Error()})
			continue
		}
		result.Messages = append(result.Messages, msg)
	}

	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	log.Info("returned homework statuses",
		zap.Int("messages", len(result.Messages)),
		zap.Int("skipped", len(result.Skipped)))

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}, nil, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)}},
		IsError: true,
	}
}
