package biz

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"HealthPulse/internal/model"
	pkglog "HealthPulse/pkg/log"
	"HealthPulse/pkg/metadata"
	"HealthPulse/pkg/validate"

	"github.com/go-kratos/kratos/v2/log"
)

// Log batch limits.
const (
	MaxLogLines     = 1000
	MaxLogLineBytes = metadata.MaxBytes

	unknownLogService = "unknown"
)

// LogIngestResult counts what happened to the lines of one batch.
type LogIngestResult struct {
	Processed int `json:"processed"`
	Queued    int `json:"queued"`
	Skipped   int `json:"skipped"`
}

// logLine is one JSON log entry.
type logLine struct {
	Service   string                 `json:"service"`
	Timestamp string                 `json:"timestamp"`
	Metrics   map[string]interface{} `json:"metrics"`
}

// LogIngester turns JSON-lines log batches into LOG_PROCESSED samples. Blank lines are
// ignored; lines that are not JSON objects are counted as skipped and never fail the batch.
// Every accepted line becomes one sample with its own ID, written through the resilient
// write path.
type LogIngester struct {
	writer *MetricWriter
	sink   MetricsSink
	now    func() time.Time
	logger *pkglog.LogHelper
}

// NewLogIngester creates a LogIngester.
func NewLogIngester(writer *MetricWriter, sink MetricsSink, logger log.Logger) *LogIngester {
	return &LogIngester{
		writer: writer,
		sink:   sink,
		now:    time.Now,
		logger: pkglog.NewLogHelper(logger),
	}
}

// Ingest parses the whole batch before writing, so an oversized or unreadable batch is
// rejected without side effects. A write failure stops the batch and is returned as is.
func (l *LogIngester) Ingest(ctx context.Context, logFile string, r io.Reader) (*LogIngestResult, error) {
	if r == nil {
		return nil, ErrValidation("Request body is required")
	}

	samples, skipped, err := l.parse(logFile, r)
	if err != nil {
		return nil, err
	}

	res := &LogIngestResult{Skipped: skipped}
	perService := make(map[string]int)
	defer func() { l.emit(ctx, perService) }()

	for _, sample := range samples {
		wr, err := l.writer.WriteSample(ctx, sample)
		if err != nil {
			l.logger.Errorw("msg", "log batch aborted", "log_file", logFile,
				"processed", res.Processed, "queued", res.Queued, "remaining", len(samples)-res.Processed-res.Queued)
			return nil, err
		}
		if wr.Outcome == WriteAcceptedQueued {
			res.Queued++
		} else {
			res.Processed++
		}
		perService[sample.ServiceName]++
	}

	l.logger.Store("log batch ingested", "log_file", logFile,
		"processed", res.Processed, "queued", res.Queued, "skipped", res.Skipped)
	return res, nil
}

func (l *LogIngester) parse(logFile string, r io.Reader) ([]*model.HealthSample, int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), MaxLogLineBytes)

	var (
		samples []*model.HealthSample
		skipped int
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if len(samples)+skipped >= MaxLogLines {
			return nil, 0, ErrValidation(fmt.Sprintf("Log batch exceeds %d lines", MaxLogLines))
		}

		var entry logLine
		if text[0] != '{' || json.Unmarshal([]byte(text), &entry) != nil {
			skipped++
			l.logger.Debugw("msg", "skipping non-JSON log line", "line", lineNo, "preview", preview(text))
			continue
		}
		samples = append(samples, l.toSample(entry, logFile, lineNo))
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, 0, ErrValidation(fmt.Sprintf("Log line %d exceeds %d bytes", lineNo+1, MaxLogLineBytes))
		}
		return nil, 0, ErrValidation("Failed to read log batch")
	}
	return samples, skipped, nil
}

func (l *LogIngester) toSample(entry logLine, logFile string, lineNo int) *model.HealthSample {
	service := entry.Service
	if !validate.Identifier(service) {
		service = unknownLogService
	}

	ts := l.now().UTC()
	if entry.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, entry.Timestamp); err == nil {
			ts = parsed.UTC()
		}
	}

	meta := metadata.ToMap(metadata.LogLine{Metrics: entry.Metrics, LogFile: logFile, Line: lineNo})
	if metadata.Validate(meta) != nil {
		meta = metadata.ToMap(metadata.LogLine{LogFile: logFile, Line: lineNo})
	}

	return &model.HealthSample{
		ServiceName: service,
		Timestamp:   ts,
		MetricType:  model.MetricTypeLogProcessed,
		Value:       1,
		Metadata:    meta,
		Source:      model.SourceLogProcessor,
	}
}

func (l *LogIngester) emit(ctx context.Context, perService map[string]int) {
	if len(perService) == 0 {
		return
	}
	data := make([]model.Datum, 0, len(perService))
	for service, n := range perService {
		data = append(data, model.Datum{
			Name:       model.MetricLogsProcessed,
			Value:      float64(n),
			Unit:       model.UnitCount,
			Dimensions: map[string]string{model.DimServiceName: service},
		})
	}
	if err := emitBatched(ctx, l.sink, data); err != nil {
		l.logger.Debugw("msg", "failed to emit log metrics", "error", err)
	}
}

func preview(s string) string {
	const limit = 100
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
