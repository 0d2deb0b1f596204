package pipeline

// One generation run: three cards, then the composite once all three exist
// Card steps are independent; a failure is logged and recorded, never fatal to the others

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"readme-image/internal/clients_api/twitter"
	"readme-image/internal/clients_api/wakatime"
	"readme-image/internal/features/bars"
	"readme-image/internal/features/cards"
	"readme-image/internal/features/quotes"
	"readme-image/internal/features/render"
	"readme-image/internal/infra/fs"
	"readme-image/internal/infra/log"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	ErrNoStatsSource = errors.New("wakatime client not configured")
	ErrNoPostsSource = errors.New("twitter client not configured")
)

// StatsFetcher returns languages ordered by usage.
type StatsFetcher interface {
	GetLanguages(ctx context.Context, statsRange string) ([]wakatime.Language, error)
}

// PostsFetcher returns the latest posts of an account, newest first.
type PostsFetcher interface {
	GetPosts(ctx context.Context, account string, count int) ([]twitter.Post, error)
}

// Publisher delivers the composite somewhere outside the workspace.
type Publisher interface {
	SendImage(ctx context.Context, path, caption string) error
}

// Options are the per-run card settings.
type Options struct {
	Paths        fs.ImagePaths
	Range        string
	MaxLanguages int
	BarWidth     int
	Bars         bars.Renderer
	Style        cards.Style
	Account      string
	PostCount    int
	Caption      string
	SnapshotDir  string // fetched data and last_run.json go here; "" disables
}

// Generator wires the data sources to the rasterizer.
type Generator struct {
	stats     StatsFetcher
	posts     PostsFetcher
	corpus    *quotes.Corpus
	raster    render.Rasterizer
	publisher Publisher
	opts      Options

	now func() time.Time
	rnd *rand.Rand
}

// NewGenerator builds a generator. stats or posts may be nil when their
// credentials are missing; the matching step then fails on its own.
func NewGenerator(stats StatsFetcher, posts PostsFetcher, corpus *quotes.Corpus, raster render.Rasterizer, opts Options) *Generator {
	if opts.PostCount < 1 {
		opts.PostCount = 1
	}
	seed := uint64(time.Now().UnixNano())
	return &Generator{
		stats:  stats,
		posts:  posts,
		corpus: corpus,
		raster: raster,
		opts:   opts,
		now:    time.Now,
		rnd:    rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

// WithPublisher sends the composite after a successful run.
func (g *Generator) WithPublisher(p Publisher) *Generator {
	g.publisher = p
	return g
}

// WithClock replaces time.Now for the quote date.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithRand fixes the quote selection source.
func (g *Generator) WithRand(rnd *rand.Rand) *Generator {
	g.rnd = rnd
	return g
}

// Result describes what a run wrote.
type Result struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Files     []string  `json:"files"`            // card images written, in composite order
	Composite string    `json:"composite"`        // "" when compositing was skipped
	Published bool      `json:"published"`
	Failed    []string  `json:"failed,omitempty"` // names of failed steps
}

type step struct {
	name string
	out  string
	card func(ctx context.Context) (cards.Card, error)
}

// Run executes the card steps, the composite and the optional publish.
// The returned error aggregates every failed step.
func (g *Generator) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString(), StartedAt: start}
	prev := g.previousRun()
	defer g.snapshot("last_run.json", res)

	runLog := log.Logger.With(zap.String("run_id", res.RunID))

	fields := []zap.Field{
		zap.String("backend", g.raster.Name()),
		zap.String("images_dir", g.opts.Paths.Dir()),
	}
	if prev != nil {
		fields = append(fields,
			zap.String("previous_run_id", prev.RunID),
			zap.Strings("previous_failed", prev.Failed))
	}
	runLog.Info("Generation started", fields...)

	if err := g.opts.Paths.EnsureDir(); err != nil {
		return res, err
	}
	if err := fs.RemoveStale(g.opts.Paths.Readme); err != nil {
		return res, err
	}

	steps := []step{
		{name: "languages", out: g.opts.Paths.Languages, card: g.languagesCard},
		{name: "quote", out: g.opts.Paths.Quote, card: g.quoteCard},
		{name: "posts", out: g.opts.Paths.Posts, card: g.postsCard},
	}

	var errs error
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return res, multierr.Append(errs, err)
		}
		if err := g.runStep(ctx, s); err != nil {
			log.LogError(fmt.Sprintf("Failed to generate %s image", s.name),
				zap.String("run_id", res.RunID),
				zap.String("file", s.out),
				zap.Error(err))
			res.Failed = append(res.Failed, s.name)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		res.Files = append(res.Files, s.out)
	}

	if len(res.Failed) > 0 {
		log.LogWarn("Skipping composite, not every card was generated",
			zap.String("run_id", res.RunID),
			zap.Strings("failed", res.Failed))
		return res, errs
	}

	if err := g.raster.Append(ctx, g.opts.Paths.Cards(), g.opts.Paths.Readme); err != nil {
		log.LogError("Failed to composite README image", zap.String("run_id", res.RunID), zap.Error(err))
		res.Failed = append(res.Failed, "composite")
		return res, multierr.Append(errs, fmt.Errorf("composite: %w", err))
	}
	res.Composite = g.opts.Paths.Readme
	log.LogSuccess("README image generated",
		zap.String("file", res.Composite),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))

	if g.publisher != nil {
		if err := g.publisher.SendImage(ctx, res.Composite, g.opts.Caption); err != nil {
			log.LogError("Failed to publish README image", zap.String("run_id", res.RunID), zap.Error(err))
			res.Failed = append(res.Failed, "publish")
			errs = multierr.Append(errs, fmt.Errorf("publish: %w", err))
		} else {
			res.Published = true
		}
	}

	return res, errs
}

func (g *Generator) runStep(ctx context.Context, s step) error {
	// A failed step must not leave last run's image behind for the composite.
	if err := fs.RemoveStale(s.out); err != nil {
		return err
	}

	start := time.Now()
	card, err := s.card(ctx)
	if err != nil {
		return err
	}
	if err := g.raster.Rasterize(ctx, card, s.out); err != nil {
		return err
	}

	log.LogSuccess(fmt.Sprintf("Generated %s image", s.name),
		zap.String("file", s.out),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}

func (g *Generator) languagesCard(ctx context.Context) (cards.Card, error) {
	if g.stats == nil {
		return cards.Card{}, ErrNoStatsSource
	}
	langs, err := g.stats.GetLanguages(ctx, g.opts.Range)
	if err != nil {
		return cards.Card{}, err
	}
	log.LogInfo("Fetched languages", zap.Int("count", len(langs)), zap.String("range", g.opts.Range))
	g.snapshot("languages.json", langs)

	return cards.Languages(langs, cards.LanguagesOptions{
		Range:        g.opts.Range,
		MaxLanguages: g.opts.MaxLanguages,
		BarWidth:     g.opts.BarWidth,
		Bars:         g.opts.Bars,
		Style:        g.opts.Style,
	}), nil
}

func (g *Generator) quoteCard(ctx context.Context) (cards.Card, error) {
	if g.corpus == nil || g.corpus.Len() == 0 {
		return cards.Card{}, quotes.ErrEmptyCorpus
	}
	q := g.corpus.Pick(g.rnd)
	log.LogInfo("Picked quote", zap.String("author", q.Author))
	return cards.Quote(q, g.now(), g.opts.Style), nil
}

func (g *Generator) postsCard(ctx context.Context) (cards.Card, error) {
	if g.posts == nil {
		return cards.Card{}, ErrNoPostsSource
	}
	posts, err := g.posts.GetPosts(ctx, g.opts.Account, g.opts.PostCount)
	if err != nil {
		return cards.Card{}, err
	}
	log.LogInfo("Fetched posts", zap.Int("count", len(posts)), zap.String("account", g.opts.Account))
	g.snapshot("posts.json", posts)
	return cards.Posts(posts, g.opts.PostCount, g.opts.Style), nil
}

// previousRun reads last_run.json from the snapshot directory, nil when absent.
func (g *Generator) previousRun() *Result {
	if g.opts.SnapshotDir == "" {
		return nil
	}
	var prev Result
	if err := fs.LoadJSON(g.opts.SnapshotDir, "last_run.json", &prev); err != nil {
		log.LogDebug("No previous run snapshot", zap.Error(err))
		return nil
	}
	return &prev
}

// snapshot saves v for debugging; failures are only logged.
func (g *Generator) snapshot(filename string, v interface{}) {
	if g.opts.SnapshotDir == "" {
		return
	}
	if err := fs.SaveJSON(g.opts.SnapshotDir, filename, v); err != nil {
		log.LogWarn("Failed to save snapshot", zap.String("file", filename), zap.Error(err))
	}
}
