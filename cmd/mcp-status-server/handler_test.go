package main

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cexll/homework-bot/internal/practicum"
	"github.com/cexll/homework-bot/internal/verdict"
)

type fakeFetcher struct {
	answer   *practicum.Answer
	err      error
	fromDate int64
}

func (f *fakeFetcher) GetAPIAnswer(_ context.Context, fromDate int64) (*practicum.Answer, error) {
	f.fromDate = fromDate
	return f.answer, f.err
}

func newTestTool(f *fakeFetcher) *statusTool {
	return &statusTool{
		client:  f,
		catalog: verdict.Default(),
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Unix(1700000000, 0) },
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestHandle_ReturnsMessagesOldestFirst(t *testing.T) {
	f := &fakeFetcher{answer: &practicum.Answer{
		CurrentDate: 1700000600,
		Homeworks: []practicum.Homework{
			{HomeworkName: "second.zip", Status: "approved"},
			{HomeworkName: "first.zip", Status: "reviewing"},
			{HomeworkName: "odd.zip", Status: "lost"},
		},
	}}

	res, _, err := newTestTool(f).Handle(context.Background(), nil, GetStatusesParams{FromDate: 1699990000})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, int64(1699990000), f.fromDate)

	var got StatusesResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, int64(1700000600), got.CurrentDate)
	assert.Equal(t, []string{
		`Изменился статус проверки работы "first.zip". Работа взята на проверку ревьюером.`,
		`Изменился статус проверки работы "second.zip". Работа проверена: ревьюеру всё понравилось. Ура!`,
	}, got.Messages)
	require.Len(t, got.Skipped, 1)
	assert.Equal(t, "odd.zip", got.Skipped[0].Homework)
	assert.Contains(t, got.Skipped[0].Reason, "lost")
}

func TestHandle_DefaultsFromDate(t *testing.T) {
	f := &fakeFetcher{answer: &practicum.Answer{CurrentDate: 1}}

	res, _, err := newTestTool(f).Handle(context.Background(), nil, GetStatusesParams{})
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1700000000, 0).Add(-defaultLookback).Unix(), f.fromDate)
	assert.JSONEq(t, `{"current_date":1,"messages":[]}`, resultText(t, res))
}

func TestHandle_RejectsNegativeFromDate(t *testing.T) {
	_, _, err := newTestTool(&fakeFetcher{}).Handle(context.Background(), nil, GetStatusesParams{FromDate: -1})
	assert.Error(t, err)
}

func TestHandle_APIErrorIsToolError(t *testing.T) {
	f := &fakeFetcher{err: fmt.Errorf("%w: dial tcp: refused", practicum.ErrConnection)}

	res, _, err := newTestTool(f).Handle(context.Background(), nil, GetStatusesParams{FromDate: 10})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "API request connection error")
}

func TestServer_CallToolOverInMemoryTransport(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	f := &fakeFetcher{answer: &practicum.Answer{
		CurrentDate: 42,
		Homeworks:   []practicum.Homework{{HomeworkName: "hw.zip", Status: "rejected"}},
	}}
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := newServer(newTestTool(f)).Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: map[string]any{"from_date": 7},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, int64(7), f.fromDate)
	assert.Contains(t, resultText(t, res), `"hw.zip". Работа проверена: у ревьюера есть замечания.`)
}

func TestNewStatusToolFromEnv(t *testing.T) {
	t.Setenv("PRACTICUM_TOKEN", "")
	_, err := newStatusToolFromEnv(zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRACTICUM_TOKEN")

	t.Setenv("PRACTICUM_TOKEN", "token")
	t.Setenv("PRACTICUM_ENDPOINT", "")
	t.Setenv("VERDICTS_FILE", "")
	tool, err := newStatusToolFromEnv(zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, tool.client)

	t.Setenv("VERDICTS_FILE", "/nonexistent/verdicts.yaml")
	_, err = newStatusToolFromEnv(zap.NewNop())
	assert.Error(t, err)
}
