// Package application assembles the long-lived services shared by the web
// server and the CLI.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"thirdcoast.systems/gifmoments/internal/acquire"
	"thirdcoast.systems/gifmoments/internal/ai"
	"thirdcoast.systems/gifmoments/internal/artifacts"
	"thirdcoast.systems/gifmoments/internal/config"
	"thirdcoast.systems/gifmoments/internal/cookiejar"
	"thirdcoast.systems/gifmoments/internal/db"
	"thirdcoast.systems/gifmoments/internal/describe"
	"thirdcoast.systems/gifmoments/internal/pipeline"
	"thirdcoast.systems/gifmoments/internal/render"
	"thirdcoast.systems/gifmoments/internal/selector"
	"thirdcoast.systems/gifmoments/pkg/utils/language"
	"thirdcoast.systems/gifmoments/pkg/ytdlp"
)

// Services holds everything a request handler needs.
type Services struct {
	Config      config.Config
	Coordinator *pipeline.Coordinator
	Artifacts   *artifacts.Store
	Prober      *acquire.Prober
	// Cookies is nil without a database and an encryption key.
	Cookies *cookiejar.Jar

	closers []func() error
}

// Close releases clients opened by NewServices.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// NewServices wires the pipeline from configuration. dbc may be nil, in which
// case artifact metadata is kept in memory and the cookie jar is disabled.
func NewServices(ctx context.Context, conf config.Config, dbc *db.DatabaseConnection) (*Services, error) {
	s := &Services{Config: conf}

	yt := ytdlp.New()
	if conf.YtdlpPath != "" {
		yt.Path = conf.YtdlpPath
	}
	yt.LogCallback = func(stream, line string) {
		slog.Debug("yt-dlp", "stream", stream, "line", line)
	}

	prober, err := acquire.NewProber(ctx, yt, conf.YouTubeAPIKey)
	if err != nil {
		return nil, err
	}
	s.Prober = prober

	cookieSources := acquire.FirstCookies{}
	if dbc != nil {
		enc, err := InitEncryptionManager(conf)
		switch {
		case err == nil:
			s.Cookies = cookiejar.New(dbc, enc)
			cookieSources = append(cookieSources, s.Cookies)
		case errors.Is(err, ErrNoEncryptionKey):
			slog.InfoContext(ctx, "cookie jar disabled", "reason", err)
		default:
			return nil, err
		}
	}
	if conf.CookiesFile != "" {
		cookieSources = append(cookieSources, acquire.FileCookies(conf.CookiesFile))
	}

	strategies, err := acquire.Build(conf.Strategies(), yt)
	if err != nil {
		return nil, err
	}
	acquirer := acquire.New(strategies,
		acquire.WithCookies(cookieSources),
		acquire.WithProber(prober),
		acquire.WithAttemptTimeout(conf.AcquireAttemptTimeout),
	)

	lang, err := language.Parse(conf.CaptionLanguage)
	if err != nil {
		return nil, fmt.Errorf("caption language: %w", err)
	}
	describeOpts := []describe.Option{
		describe.WithCaptions(yt),
		describe.WithLanguage(lang),
		describe.WithWorkers(conf.DescribeWorkers),
		describe.WithCaptionTimeout(conf.CaptionTimeout),
		describe.WithFrameTimeout(conf.FrameTimeout),
		describe.WithSceneTimeout(conf.SceneTimeout),
	}

	var reasoner selector.Reasoner
	if conf.GeminiAPIKey != "" {
		client, err := ai.NewClient(ctx, conf.GeminiAPIKey, conf.GeminiModel, conf.AIRequestsPerMinute)
		if err != nil {
			return nil, err
		}
		reasoner = client
		describeOpts = append(describeOpts, describe.WithVision(client))
	} else {
		slog.WarnContext(ctx, "GEMINI_API_KEY not set; moments will use the fallback selection")
	}

	if err := os.MkdirAll(conf.ArtifactDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	if conf.WorkDir != "" {
		if err := os.MkdirAll(conf.WorkDir, 0o755); err != nil {
			return nil, fmt.Errorf("create work dir: %w", err)
		}
	}

	blobs, err := s.openBlobs(ctx, conf)
	if err != nil {
		return nil, err
	}
	var meta artifacts.MetadataStore = artifacts.NewMemoryMetadata()
	if dbc != nil {
		meta = artifacts.NewPGMetadata(dbc)
	} else {
		slog.WarnContext(ctx, "no database configured; artifact metadata is kept in memory")
	}
	s.Artifacts = artifacts.NewStore(meta, blobs)

	renderer := render.New(conf.ArtifactDir,
		render.WithFont(render.ResolveFont(conf.FontPath, render.DefaultFontPaths)),
		render.WithScratchDir(conf.WorkDir),
		render.WithTimeout(conf.RenderTimeout),
	)
	if !renderer.CaptionsEnabled() {
		slog.WarnContext(ctx, "no caption font found; GIFs will be rendered without captions")
	}

	s.Coordinator = pipeline.New(pipeline.Deps{
		Acquirer:  acquirer,
		Describer: describe.New(describeOpts...),
		Selector:  selector.New(reasoner, selector.WithTimeout(conf.SelectTimeout)),
		Renderer:  renderer,
		Store:     s.Artifacts,
	},
		pipeline.WithWorkRoot(conf.WorkDir),
		pipeline.WithRenderConcurrency(conf.RenderConcurrency),
	)

	slog.InfoContext(ctx, "services ready",
		"strategies", acquirer.Strategies(),
		"ai", reasoner != nil,
		"captions", renderer.CaptionsEnabled(),
		"cookie_jar", s.Cookies != nil,
		"artifact_backend", conf.ArtifactBackend,
	)
	return s, nil
}

func (s *Services) openBlobs(ctx context.Context, conf config.Config) (artifacts.BlobStore, error) {
	if conf.ArtifactBackend == "gcs" {
		g, err := artifacts.NewGCSBlobs(ctx, conf.GCSBucket, "gifs/")
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, g.Close)
		return g, nil
	}
	return artifacts.NewDiskBlobs(conf.ArtifactDir)
}
