package tarot

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Stage is a state of one pipeline run.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageDescribing Stage = "describing"
	StageImaging    Stage = "imaging"
	StageReading    Stage = "reading"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Observer is told about every stage a run enters. It receives the
// *GenerationError together with StageFailed. The imaging and reading stages
// are entered from separate goroutines.
type Observer func(stage Stage, err error)

// Pipeline generates a card description, then the card image and the reading.
type Pipeline struct {
	describer TextGenerator
	reader    TextGenerator
	painter   Painter

	logger   logrus.FieldLogger
	limiter  *rate.Limiter
	timeout  time.Duration
	observer Observer
	newID    func() string
}

type PipelineOption func(*Pipeline)

func WithLogger(logger logrus.FieldLogger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

// WithRateLimit lets at most one run start per interval. Zero disables it.
func WithRateLimit(interval time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if interval > 0 {
			p.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

// WithTimeout bounds each hosted call. Zero leaves calls unbounded.
func WithTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.timeout = d }
}

func WithObserver(o Observer) PipelineOption {
	return func(p *Pipeline) { p.observer = o }
}

func withIDGenerator(f func() string) PipelineOption {
	return func(p *Pipeline) { p.newID = f }
}

func NewPipeline(describer, reader TextGenerator, painter Painter, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		describer: describer,
		reader:    reader,
		painter:   painter,
		logger:    logrus.StandardLogger(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Pipeline) enter(stage Stage, err error) {
	if p.observer != nil {
		p.observer(stage, err)
	}
}

func (p *Pipeline) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	return fn(ctx)
}

// Generate runs one submission end to end. It returns either a complete
// Result or a *GenerationError; there is no partial result.
func (p *Pipeline) Generate(ctx context.Context, sub Submission) (*Result, error) {
	start := time.Now()
	logger := p.logger.WithField("asker", sub.Name)
	p.enter(StageIdle, nil)

	res, err := p.generate(ctx, sub)
	if err != nil {
		genErr := classify(err)
		entry := logger.WithFields(logrus.Fields{
			"stage":   genErr.Stage,
			"kind":    genErr.Kind,
			"elapsed": time.Since(start).String(),
		}).WithError(genErr.Err)
		if genErr.Kind == KindCanceled {
			entry.Info("tarot card generation abandoned")
		} else {
			entry.Error("failed to generate tarot card")
		}
		p.enter(StageFailed, genErr)
		return nil, genErr
	}

	res.Elapsed = time.Since(start)
	logger.WithFields(logrus.Fields{
		"result_id": res.ID,
		"elapsed":   res.Elapsed.String(),
	}).Info("tarot card generated")
	p.enter(StageDone, nil)

	return res, nil
}

func (p *Pipeline) generate(ctx context.Context, sub Submission) (*Result, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, stageError(StageIdle, err)
		}
	}

	p.enter(StageDescribing, nil)
	desc, err := p.describe(ctx, sub)
	if err != nil {
		return nil, stageError(StageDescribing, err)
	}
	p.logger.WithField("description", desc).Debug("card description generated")

	readingPrompt, err := ReadingTemplate.Render(readingVars(sub, desc))
	if err != nil {
		return nil, stageError(StageReading, err)
	}

	var (
		img     CardImage
		reading string
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		p.enter(StageImaging, nil)
		return stageError(StageImaging, p.call(egCtx, func(ctx context.Context) error {
			var err error
			img, err = p.painter.Paint(ctx, string(desc))
			return err
		}))
	})
	eg.Go(func() error {
		p.enter(StageReading, nil)
		return stageError(StageReading, p.call(egCtx, func(ctx context.Context) error {
			var err error
			reading, err = p.reader.Generate(ctx, readingPrompt)
			return err
		}))
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &Result{
		ID:          p.newID(),
		Submission:  sub,
		Description: desc,
		Reading:     CardReading(reading),
		Image:       img,
		ImageURL:    img.URL(),
	}, nil
}

func (p *Pipeline) describe(ctx context.Context, sub Submission) (CardDescription, error) {
	prompt, err := DescriptionTemplate.Render(descriptionVars(sub))
	if err != nil {
		return "", err
	}

	var text string
	err = p.call(ctx, func(ctx context.Context) error {
		var err error
		text, err = p.describer.Generate(ctx, prompt)
		return err
	})
	if err != nil {
		return "", err
	}

	return CardDescription(text), nil
}

// stageError tags err with the stage it happened in. A nil err stays nil.
func stageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	genErr := classify(err)
	if genErr.Stage == "" {
		tagged := *genErr
		tagged.Stage = stage
		return &tagged
	}

	return genErr
}

// IsStage reports whether err is a generation failure in the given stage.
func IsStage(err error, stage Stage) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Stage == stage
}
