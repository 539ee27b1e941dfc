package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/maimai/spacetarot"
	"github.com/maimai/spacetarot/config"
)

func SaveCover(p string) error {
	img := tarot.RenderCover(tarot.GetDefaultAssets(), "Tarot MAI MAI", "Tu carta, tu color, tu animal: el cosmos responde.")

	data := bytes.Buffer{}
	if err := imaging.Encode(&data, img, imaging.PNG); err != nil {
		return errors.WithMessage(err, "failed to encode cover")
	}

	return tarot.SavePNG(data.Bytes(), p)
}

func newPipeline(ctx context.Context, configPath string, dryRun bool) (*tarot.Pipeline, error) {
	if dryRun {
		return tarot.NewPipeline(&tarot.DumbGPTReader{}, &tarot.DumbGPTReader{}, &tarot.DumbPainter{}), nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	return cfg.Pipeline(ctx, &http.Client{})
}

func run(ctx context.Context, configPath string, sub tarot.Submission, dryRun bool, out string) error {
	pipeline, err := newPipeline(ctx, configPath, dryRun)
	if err != nil {
		return err
	}

	res, err := pipeline.Generate(ctx, sub)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n\n%s\n\n%s\n", res.Description, res.Reading, res.ImageURL)
	if dryRun {
		return SaveCover(out)
	}

	_, err = tarot.NewDownloader(&http.Client{Timeout: time.Minute}, out).Download(ctx, res.ImageURL)
	return err
}

func main() {
	var (
		configArg = flag.String("config", "", "Path to a config file")
		nameArg   = flag.String("name", "Ana", "Name on the reading")
		birthArg  = flag.String("birth", "1990-04-12", "Birth date, YYYY-MM-DD")
		colorArg  = flag.String("color", "azul", "Favorite color")
		animalArg = flag.String("animal", "lobo", "Spirit animal")
		moodArg   = flag.String("mood", "triste pero esperanzada", "How you feel today")
		emailArg  = flag.String("email", "ana@example.com", "Email")
		dryRunArg = flag.Bool("dry-run", false, "Use canned providers and save the cover instead of a card")
		outArg    = flag.String("out", "divine_results.png", "Where to save the PNG")
	)
	flag.Parse()

	sub := tarot.Submission{
		Name:          *nameArg,
		BirthDate:     *birthArg,
		FavoriteColor: *colorArg,
		SpiritAnimal:  *animalArg,
		Mood:          *moodArg,
		Email:         *emailArg,
	}

	if err := run(context.Background(), *configArg, sub, *dryRunArg, *outArg); err != nil {
		logrus.WithError(err).Error("failed to divine")
		os.Exit(1)
	}
}
