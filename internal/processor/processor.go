package processor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"call-insights-go/internal/audiostore"
	"call-insights-go/internal/extractor"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/metrics"
	"call-insights-go/internal/store"
	"call-insights-go/internal/transcription"
	"call-insights-go/internal/types"
)

type AudioSaver interface {
	Save(originalName string, r io.Reader) (audiostore.Saved, error)
}

type RecordStore interface {
	Create(ctx context.Context, filename string, meta types.FileMetadata) (*types.CallRecord, error)
	Update(ctx context.Context, id uint, f store.Fields) (*types.CallRecord, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) transcription.Result
}

type Analyzer interface {
	Analyze(ctx context.Context, transcript string) extractor.Result
}

// Processor runs one upload through save, record, transcribe and analyze.
type Processor struct {
	audio       AudioSaver
	records     RecordStore
	transcriber Transcriber
	analyzer    Analyzer
	metrics     *metrics.Metrics
	log         *logger.Logger
}

func New(audio AudioSaver, records RecordStore, tr Transcriber, an Analyzer, m *metrics.Metrics, log *logger.Logger) *Processor {
	return &Processor{
		audio:       audio,
		records:     records,
		transcriber: tr,
		analyzer:    an,
		metrics:     m,
		log:         log.Component("processor"),
	}
}

// ProcessUpload returns the fully populated record. It fails only when the
// file cannot be saved or the record store rejects a write; transcription and
// analysis problems are absorbed by their clients.
func (p *Processor) ProcessUpload(ctx context.Context, originalName string, r io.Reader) (*types.CallRecord, error) {
	log := p.log.WithField("filename", originalName)
	start := time.Now()

	var saved audiostore.Saved
	err := p.stage("save", func() error {
		var err error
		saved, err = p.audio.Save(originalName, r)
		return err
	})
	if err != nil {
		p.metrics.Uploads.WithLabelValues("failed").Inc()
		log.WithField("error", err.Error()).Error("saving upload failed")
		return nil, fmt.Errorf("save audio: %w", err)
	}
	log = log.WithField("local_path", saved.Path).WithField("size_bytes", saved.SizeBytes)

	// The file is on disk; finish the record even if the client goes away.
	ctx = context.WithoutCancel(ctx)

	var rec *types.CallRecord
	err = p.stage("record", func() error {
		var err error
		rec, err = p.records.Create(ctx, originalName, types.FileMetadata{
			SizeBytes: saved.SizeBytes,
			LocalPath: saved.Path,
		})
		return err
	})
	if err != nil {
		return nil, p.fail(log, "create record", err)
	}
	log = log.WithField("call_id", rec.ID)
	log.Info("call recorded")

	var tr transcription.Result
	err = p.stage("transcribe", func() error {
		tr = p.transcriber.Transcribe(ctx, saved.Path)
		p.countFallback("transcribe", string(tr.Source))
		var err error
		rec, err = p.records.Update(ctx, rec.ID, store.Fields{Transcript: &tr.Text})
		return err
	})
	if err != nil {
		return nil, p.fail(log, "store transcript", err)
	}

	var an extractor.Result
	err = p.stage("analyze", func() error {
		an = p.analyzer.Analyze(ctx, tr.Text)
		p.countFallback("analyze", string(an.Source))
		tags := an.Analysis.TagList()
		var err error
		rec, err = p.records.Update(ctx, rec.ID, store.Fields{Analysis: &an.Analysis, Tags: &tags})
		return err
	})
	if err != nil {
		return nil, p.fail(log, "store analysis", err)
	}

	p.metrics.Uploads.WithLabelValues("processed").Inc()
	log.WithField("transcript_source", tr.Source).
		WithField("analysis_source", an.Source).
		WithField("tags", len(rec.Tags)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("upload processed")
	return rec, nil
}

func (p *Processor) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return err
}

// countFallback records mock results as "unconfigured" and failures as "error".
func (p *Processor) countFallback(stage, source string) {
	switch source {
	case string(transcription.SourceMock):
		p.metrics.Fallbacks.WithLabelValues(stage, "unconfigured").Inc()
	case string(transcription.SourceFallback):
		p.metrics.Fallbacks.WithLabelValues(stage, "error").Inc()
	}
}

func (p *Processor) fail(log *logrus.Entry, what string, err error) error {
	p.metrics.Uploads.WithLabelValues("failed").Inc()
	log.WithField("error", err.Error()).Error(what + " failed")
	return fmt.Errorf("%s: %w", what, err)
}
