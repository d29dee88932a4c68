package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

// restoreGlobal はテスト後にグローバルのTracerProviderを元に戻す。
func restoreGlobal(t *testing.T) {
	t.Helper()
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestSetup_StdoutExportsSpans(t *testing.T) {
	restoreGlobal(t)
	var buf bytes.Buffer

	shutdown, err := Setup(ExporterStdout, &buf)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "insight.SuggestRecipes")
	if !span.IsRecording() {
		t.Error("登録したプロバイダーのスパンは記録中であるべき")
	}
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"Name":"insight.SuggestRecipes"`) {
		t.Errorf("スパンが出力されていない: %s", out)
	}
	if !strings.Contains(out, ServiceName) {
		t.Errorf("service.name が出力されていない: %s", out)
	}
}

func TestSetup_NoneStillRecords(t *testing.T) {
	restoreGlobal(t)

	shutdown, err := Setup(ExporterNone, nil)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer shutdown(context.Background())

	_, span := otel.Tracer("test").Start(context.Background(), "llm.Complete")
	defer span.End()
	if !span.SpanContext().IsValid() {
		t.Error("トレースIDが採番されるべき")
	}
}

func TestSetup_UnknownExporter(t *testing.T) {
	restoreGlobal(t)

	if _, err := Setup("jaeger", nil); err == nil {
		t.Error("未対応のエクスポーターはエラーになるべき")
	}
}
