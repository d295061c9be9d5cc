package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_EmptyDSNIsNoop(t *testing.T) {
	shutdown, err := Init(Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	shutdown()
}

func TestStartSpan_WithoutSentry(t *testing.T) {
	index := 2
	ctx, span := StartSpan(context.Background(), "Summarizer.Summarize", SpanAttributes{
		Model:      "llama3",
		ChunkIndex: &index,
		Operation:  "summarize",
	})
	require.NotNil(t, ctx)
	require.NotNil(t, span)

	span.SetError(errors.New("boom"))
	span.End()
	assert.NotNil(t, span.Context())
}

func TestSpan_NilInnerIsSafe(t *testing.T) {
	span := &Span{}

	span.End()
	span.SetError(errors.New("ignored"))

	assert.Equal(t, context.Background(), span.Context())
}

func TestAddBreadcrumb_WithoutSentry(t *testing.T) {
	assert.NotPanics(t, func() {
		AddBreadcrumb(context.Background(), "pipeline", "retrieved 5 passages")
		CaptureError(context.Background(), errors.New("not sent"))
	})
}

func TestTracesSampler(t *testing.T) {
	sampler := tracesSampler(0.1)

	assert.Equal(t, 0.0, sampler(sentry.SamplingContext{Span: &sentry.Span{Name: "GET /health"}}))
	assert.Equal(t, 1.0, sampler(sentry.SamplingContext{Span: &sentry.Span{Name: "DocumentWorker.processBatch", Op: OpIndex}}))
	assert.Equal(t, 0.1, sampler(sentry.SamplingContext{Span: &sentry.Span{Name: "POST /ask", Op: "http.server"}}))
	assert.Equal(t, 0.1, sampler(sentry.SamplingContext{}))
}

func TestScrubEvent_DropsQuestionAndToken(t *testing.T) {
	event := &sentry.Event{Request: &sentry.Request{
		URL:         "http://votewise/documents/",
		Method:      "POST",
		Data:        `{"question":"Que propose le PS ?"}`,
		QueryString: "cursor=abc",
		Headers:     map[string]string{"Authorization": "Bearer secret", "User-Agent": "votewise"},
	}}

	out := scrubEvent(event)

	require.NotNil(t, out)
	assert.Empty(t, out.Request.Data)
	assert.Empty(t, out.Request.QueryString)
	assert.NotContains(t, out.Request.Headers, "Authorization")
	assert.Equal(t, "votewise", out.Request.Headers["User-Agent"])
	assert.Equal(t, "http://votewise/documents/", out.Request.URL)
}

func TestScrubEvent_NoRequest(t *testing.T) {
	event := &sentry.Event{Message: "boom"}
	assert.Same(t, event, scrubEvent(event))
	assert.Nil(t, scrubEvent(nil))
}

func TestSpan_SetData(t *testing.T) {
	_, span := StartSpan(context.Background(), "AnswerService.Answer", SpanAttributes{
		SourceKey: "fr/ps.pdf",
		Operation: "answer",
	})
	defer span.End()

	span.SetData("passages", 5)

	assert.Equal(t, 5, span.inner.Data["passages"])
	assert.Equal(t, "fr/ps.pdf", span.inner.Tags["source_key"])
	assert.Equal(t, "answer", span.inner.Data["operation"])
}
