package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CJHwong/gems.sh/internal/config"
	"github.com/CJHwong/gems.sh/internal/domain"
	"github.com/CJHwong/gems.sh/internal/llm"
	"github.com/CJHwong/gems.sh/internal/notify"
	"github.com/CJHwong/gems.sh/internal/prompt"
	"github.com/CJHwong/gems.sh/internal/response"
	"github.com/CJHwong/gems.sh/internal/sink"
	"github.com/CJHwong/gems.sh/internal/template"
	"go.uber.org/zap"
)

// AskDeps wires the ask flow. History, Clipboard and Notifier are optional.
type AskDeps struct {
	Settings       config.Settings
	Registry       *template.Registry
	Client         Streamer
	Composer       *prompt.Composer
	OpenSink       SinkOpener
	TranscriptPath string
	History        HistoryService
	Clipboard      notify.Clipboard
	Notifier       notify.Notifier
	Logger         *zap.Logger
}

type askService struct {
	AskDeps
	observer UseCaseObserver
}

func NewAskService(deps AskDeps, observers ...UseCaseObserver) AskService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clipboard == nil {
		deps.Clipboard = notify.Noop{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Noop{}
	}
	return &askService{AskDeps: deps, observer: useCaseObserverOrNoop(observers)}
}

func (s *askService) Ask(ctx context.Context, req AskRequest) (res *AskResult, err error) {
	start := time.Now()
	fields := map[string]any{}
	defer func() { observe(ctx, s.observer, "ask", start, err, fields) }()

	name := domain.CoalesceStr(req.Template, s.Settings.DefaultPromptTemplate)
	tmpl, props, err := s.Registry.Get(name)
	if err != nil {
		return nil, err
	}
	model := domain.ResolveModel(req.Model, props.Model, s.Settings.DefaultModel)
	run := domain.NewRun(tmpl.Name, model, req.Input)
	fields["template"], fields["model"], fields["run_id"] = tmpl.Name, model, run.ID

	res = &AskResult{Run: run, TranscriptPath: s.TranscriptPath}

	finalPrompt, err := s.Composer.Compose(ctx, tmpl, req.Input, props)
	if err != nil {
		return res, err
	}
	run.Prompt = finalPrompt
	s.Logger.Debug("prompt composed",
		zap.String("template", tmpl.Name),
		zap.String("model", model),
		zap.Int("chars", len(finalPrompt)))

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var cleanup Cleanup
	defer func() {
		if cerr := cleanup.Run(); cerr != nil {
			s.Logger.Debug("closing sinks", zap.Error(cerr))
		}
	}()

	out, err := s.OpenSink(tmpl.Name+" · "+model, cancel)
	if err != nil {
		return res, fmt.Errorf("opening output: %w", err)
	}
	cleanup.Add(out.Close)

	report := sink.NewReport(out, req.Verbose)
	report.Preamble(run.ID, tmpl.Name, model, req.Input, finalPrompt)
	report.ResultHeader()

	raw, streamErr := s.Client.Stream(streamCtx, model, finalPrompt, out)
	if streamErr == nil && raw == "" {
		streamErr = llm.ErrEmptyResponse
	}

	switch {
	case streamErr != nil && errors.Is(streamErr, context.Canceled):
		res.Interrupted = true
		report.Interrupted()
		run.Interrupt(raw, time.Since(start))
		s.finish(ctx, req, run, cleanup.Run)
		fields["status"] = string(run.Status)
		return res, streamErr
	case streamErr != nil:
		report.Failed(streamErr)
		run.Finish(raw, raw, streamErr, time.Since(start))
		s.finish(ctx, req, run, cleanup.Run)
		fields["status"] = string(run.Status)
		return res, streamErr
	}

	result := response.Process(raw, props.JSONSchema, props.JSONField)
	res.Response = result
	if result.Err != nil {
		s.Logger.Debug("extraction skipped", zap.String("field", props.JSONField), zap.Error(result.Err))
	}
	if req.Verbose && result.Extracted {
		s.checkSchema(props.JSONSchema, result.JSON)
	}
	if result.Extracted {
		report.Extracted(props.JSONField, result.DisplayText)
	}
	report.Done(time.Since(start))
	if werr := report.Err(); werr != nil {
		s.Logger.Debug("writing transcript", zap.Error(werr))
	}

	run.Finish(raw, result.DisplayText, nil, time.Since(start))
	if !req.NoCopy {
		s.deliver(ctx, tmpl.Name, result.DisplayText)
	}
	s.finish(ctx, req, run, cleanup.Run)
	fields["status"] = string(run.Status)
	fields["extracted"] = result.Extracted
	return res, nil
}

// finish closes the sinks, tidies the transcript and records history.
func (s *askService) finish(ctx context.Context, req AskRequest, run *domain.Run, closeSinks func() error) {
	if err := closeSinks(); err != nil {
		s.Logger.Debug("closing sinks", zap.Error(err))
	}
	if s.TranscriptPath != "" {
		if changed, err := response.ReformatFile(s.TranscriptPath); err != nil {
			s.Logger.Warn("reformatting transcript", zap.String("path", s.TranscriptPath), zap.Error(err))
		} else if changed {
			s.Logger.Debug("transcript reformatted", zap.String("path", s.TranscriptPath))
		}
	}
	if req.NoHistory || s.History == nil {
		return
	}
	// The caller's context may already be canceled by an interrupt.
	if err := s.History.Record(context.WithoutCancel(ctx), run); err != nil {
		s.Logger.Warn("recording history", zap.Error(err))
	}
}

func (s *askService) deliver(ctx context.Context, title, text string) {
	if err := s.Clipboard.Copy(text); err != nil {
		s.Logger.Warn("copying to clipboard", zap.Error(err))
		return
	}
	if err := s.Notifier.Notify(ctx, "gems · "+title, text); err != nil {
		s.Logger.Debug("desktop notification", zap.Error(err))
	}
}

func (s *askService) checkSchema(schema, document string) {
	violations, err := response.CheckSchema(schema, document)
	if err != nil {
		s.Logger.Debug("schema check unavailable", zap.Error(err))
		return
	}
	if len(violations) == 0 {
		s.Logger.Debug("response conforms to json_schema")
		return
	}
	s.Logger.Debug("response does not conform to json_schema", zap.Strings("violations", violations))
}
