package tarot

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pkg/errors"
	"github.com/replicate/replicate-go"
)

var (
	_ Painter = &ReplicatePainter{}
	_ Painter = &DumbPainter{}
)

const DefaultImageModel = "apolinario/flux-tarot-v1:6c4ebdf049df552f8c02b3a7bbb3afec3d37b20924282bab8744f1168b6de470"

// Painter turns a card description into one or more image URLs.
type Painter interface {
	Paint(ctx context.Context, prompt string) (CardImage, error)
}

// ImageOptions are the fixed generation parameters sent with every prompt.
type ImageOptions struct {
	AspectRatio   string
	OutputQuality int
	OutputFormat  string
}

func DefaultImageOptions() ImageOptions {
	return ImageOptions{AspectRatio: "2:3", OutputQuality: 80, OutputFormat: "png"}
}

// predictor is the part of *replicate.Client the painter uses.
type predictor interface {
	Run(ctx context.Context, identifier string, input replicate.PredictionInput, webhook *replicate.Webhook) (replicate.PredictionOutput, error)
}

// ReplicatePainter runs a fixed model version on Replicate.
type ReplicatePainter struct {
	client  predictor
	model   string
	options ImageOptions
}

func NewReplicatePainter(token, baseURL, model string, opts ImageOptions) (*ReplicatePainter, error) {
	clientOpts := []replicate.ClientOption{replicate.WithToken(token)}
	if baseURL != "" {
		clientOpts = append(clientOpts, replicate.WithBaseURL(baseURL))
	}

	client, err := replicate.NewClient(clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create replicate client")
	}

	return newReplicatePainter(client, model, opts), nil
}

func newReplicatePainter(client predictor, model string, opts ImageOptions) *ReplicatePainter {
	if model == "" {
		model = DefaultImageModel
	}
	def := DefaultImageOptions()
	if opts.AspectRatio == "" {
		opts.AspectRatio = def.AspectRatio
	}
	if opts.OutputQuality == 0 {
		opts.OutputQuality = def.OutputQuality
	}
	if opts.OutputFormat == "" {
		opts.OutputFormat = def.OutputFormat
	}

	return &ReplicatePainter{client: client, model: model, options: opts}
}

func (p *ReplicatePainter) input(prompt string) replicate.PredictionInput {
	return replicate.PredictionInput{
		"prompt":         prompt,
		"aspect_ratio":   p.options.AspectRatio,
		"output_quality": p.options.OutputQuality,
		"output_format":  p.options.OutputFormat,
	}
}

func (p *ReplicatePainter) Paint(ctx context.Context, prompt string) (CardImage, error) {
	output, err := p.client.Run(ctx, p.model, p.input(prompt), nil)
	if err != nil {
		return CardImage{}, classify(errors.WithMessage(err, "replicate run"))
	}

	return NormalizeImageOutput(output)
}

// NormalizeImageOutput accepts either a single URL or a list of URLs, the two
// shapes the image model answers with.
func NormalizeImageOutput(output any) (CardImage, error) {
	var urls []string
	switch v := output.(type) {
	case string:
		urls = []string{v}
	case []string:
		urls = v
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return CardImage{}, newGenerationError(KindMalformed, fmt.Errorf("image output item %d is %T, not a URL", i, item))
			}
			urls = append(urls, s)
		}
	default:
		return CardImage{}, newGenerationError(KindMalformed, fmt.Errorf("unexpected image output type %T", output))
	}

	if len(urls) == 0 {
		return CardImage{}, newGenerationError(KindMalformed, errors.New("image output is empty"))
	}
	for _, u := range urls {
		if _, err := url.ParseRequestURI(u); err != nil {
			return CardImage{}, newGenerationError(KindMalformed, errors.Wrapf(err, "image output %q is not a URL", u))
		}
	}

	return CardImage{URLs: append([]string(nil), urls...)}, nil
}

// DumbPainter answers with a fixed image URL.
type DumbPainter struct {
	URL string
}

func (p *DumbPainter) Paint(ctx context.Context, prompt string) (CardImage, error) {
	if err := ctx.Err(); err != nil {
		return CardImage{}, classify(err)
	}
	u := p.URL
	if u == "" {
		u = "https://replicate.delivery/placeholder/tarot_card.png"
	}

	return CardImage{URLs: []string{u}}, nil
}
