// Package tracing はOpenTelemetryのTracerProviderを構築し、グローバルに登録する。
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// エクスポーターの種類
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// ServiceName はスパンのリソース属性service.nameの値。
const ServiceName = "food-wallet"

// Setup は指定されたエクスポーターでTracerProviderを構築し、otelのグローバルに登録する。
// ExporterNoneの場合もスパンは記録されるが、どこにも出力しない。
// 戻り値のshutdownは未送信のスパンを書き出してからプロバイダーを停止する。
// wがnilの場合、stdoutエクスポーターはos.Stdoutに出力する。
func Setup(exporter string, w io.Writer) (shutdown func(context.Context) error, err error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", ServiceName),
		)),
	}

	switch exporter {
	case ExporterNone, "":
	case ExporterStdout:
		if w == nil {
			w = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %q", exporter)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
