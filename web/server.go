// Package web serves the tarot form, runs the generation pipeline for each
// submission and offers the generated card for download.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"html/template"
	"image/png"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"

	"github.com/maimai/spacetarot"
	"github.com/maimai/spacetarot/metrics"
)

const (
	downloadName = "tu_carta_de_tarot.png"

	coverTitle   = "Tarot MAI MAI"
	coverTagline = "Tu carta, tu color, tu animal: el cosmos responde."
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templatesFS, "templates/page.html"))

// SubmissionStore persists each valid submission before generation starts.
type SubmissionStore interface {
	Append(ctx context.Context, sub tarot.Submission) error
}

// CardGenerator runs the description → image + reading pipeline.
type CardGenerator interface {
	Generate(ctx context.Context, sub tarot.Submission) (*tarot.Result, error)
}

// ImageDownloader fetches a generated card as PNG bytes.
type ImageDownloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

type Deps struct {
	Store      SubmissionStore
	Generator  CardGenerator
	Downloader ImageDownloader
	Logger     logrus.FieldLogger
	CacheTTL   time.Duration
	Now        func() time.Time
}

type Server struct {
	store      SubmissionStore
	generator  CardGenerator
	downloader ImageDownloader
	logger     logrus.FieldLogger
	images     *cache.Cache
	markdown   goldmark.Markdown
	now        func() time.Time
	cover      template.URL
}

func NewServer(deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Generator == nil || deps.Downloader == nil {
		return nil, errors.New("store, generator and downloader are required")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = 30 * time.Minute
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	cover, err := coverDataURL()
	if err != nil {
		return nil, err
	}

	return &Server{
		store:      deps.Store,
		generator:  deps.Generator,
		downloader: deps.Downloader,
		logger:     deps.Logger,
		images:     cache.New(deps.CacheTTL, 2*deps.CacheTTL),
		markdown:   goldmark.New(),
		now:        deps.Now,
		cover:      cover,
	}, nil
}

func coverDataURL() (template.URL, error) {
	img := tarot.RenderCover(tarot.GetDefaultAssets(), coverTitle, coverTagline)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", errors.WithMessage(err, "failed to encode cover")
	}

	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleForm)
	r.Post("/cards", s.handleSubmit)
	r.Get("/cards/{id}/download", s.handleDownload)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

type resultView struct {
	Reading     template.HTML
	ImageURL    string
	DownloadURL string
}

type pageData struct {
	Cover     template.URL
	Window    BirthWindow
	Form      tarot.Submission
	BirthDate string
	Warning   string
	Failed    bool
	Result    *resultView
}

func (s *Server) page(form tarot.Submission) pageData {
	window := birthWindow(s.now())
	birth := form.BirthDate
	if birth == "" {
		birth = window.MaxString()
	}

	return pageData{Cover: s.cover, Window: window, Form: form, BirthDate: birth}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		s.logger.WithField("request_id", middleware.GetReqID(r.Context())).
			WithError(err).Error("failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, s.page(tarot.Submission{}))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.logger.WithField("request_id", middleware.GetReqID(ctx))

	sub, err := parseSubmission(r)
	if err != nil {
		logger.WithError(err).Warn("bad form")
		data := s.page(tarot.Submission{})
		data.Warning = msgRequired
		s.render(w, r, http.StatusBadRequest, data)
		return
	}

	data := s.page(sub)
	if err := validateSubmission(sub, data.Window); err != nil {
		data.Warning = err.Error()
		s.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}
	metrics.SubmissionsTotal.Inc()

	// The submission is kept even when generation fails afterwards.
	if err := s.store.Append(ctx, sub); err != nil {
		metrics.StoreErrorsTotal.Inc()
		logger.WithError(err).Error("failed to save submission")
	}

	start := time.Now()
	res, err := s.generator.Generate(ctx, sub)
	if err != nil {
		metrics.ObserveDuration("failed", time.Since(start).Seconds())
		data.Failed = true
		s.render(w, r, http.StatusBadGateway, data)
		return
	}
	metrics.ObserveDuration("done", time.Since(start).Seconds())

	view, err := s.resultView(ctx, logger, res)
	if err != nil {
		logger.WithError(err).Error("failed to render reading")
		data.Failed = true
		s.render(w, r, http.StatusInternalServerError, data)
		return
	}
	data.Result = view
	s.render(w, r, http.StatusOK, data)
}

func (s *Server) resultView(ctx context.Context, logger logrus.FieldLogger, res *tarot.Result) (*resultView, error) {
	var reading bytes.Buffer
	if err := s.markdown.Convert([]byte("### Descripción de la carta:\n\n"+string(res.Reading)), &reading); err != nil {
		return nil, errors.Wrap(err, "failed to convert reading")
	}

	view := &resultView{
		Reading:  template.HTML(reading.String()),
		ImageURL: res.ImageURL,
	}

	data, err := s.downloader.Download(ctx, res.ImageURL)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		logger.WithError(err).Warn("card image not downloadable, hiding download button")
		return view, nil
	}
	metrics.DownloadsTotal.WithLabelValues("ok").Inc()

	s.images.Set(res.ID, data, cache.DefaultExpiration)
	view.DownloadURL = "/cards/" + res.ID + "/download"

	return view, nil
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, ok := s.images.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	data := v.([]byte)

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
