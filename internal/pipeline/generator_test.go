package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"readme-image/internal/clients_api/twitter"
	"readme-image/internal/clients_api/wakatime"
	"readme-image/internal/features/cards"
	"readme-image/internal/features/quotes"
	"readme-image/internal/infra/fs"
	"readme-image/internal/infra/log"

	"go.uber.org/multierr"
)

type fakeStats struct {
	langs []wakatime.Language
	err   error
	rng   string
}

func (f *fakeStats) GetLanguages(_ context.Context, statsRange string) ([]wakatime.Language, error) {
	f.rng = statsRange
	return f.langs, f.err
}

type fakePosts struct {
	posts []twitter.Post
	err   error
}

func (f *fakePosts) GetPosts(context.Context, string, int) ([]twitter.Post, error) {
	return f.posts, f.err
}

// fakeRaster writes the card text so tests can inspect what would be drawn.
type fakeRaster struct {
	mu        sync.Mutex
	rendered  map[string]cards.Card
	appended  []string
	appendErr error
	failCard  string
}

func newFakeRaster() *fakeRaster {
	return &fakeRaster{rendered: make(map[string]cards.Card)}
}

func (f *fakeRaster) Name() string { return "fake" }

func (f *fakeRaster) Rasterize(_ context.Context, card cards.Card, out string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if card.Name == f.failCard {
		return errors.New("rasterizer exploded")
	}
	f.rendered[card.Name] = card
	return os.WriteFile(out, []byte(card.Text()), 0644)
}

func (f *fakeRaster) Append(_ context.Context, inputs []string, out string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	for _, in := range inputs {
		if _, err := os.Stat(in); err != nil {
			return err
		}
	}
	f.appended = append([]string(nil), inputs...)
	return os.WriteFile(out, []byte("composite"), 0644)
}

type fakePublisher struct {
	path, caption string
	err           error
}

func (f *fakePublisher) SendImage(_ context.Context, path, caption string) error {
	f.path, f.caption = path, caption
	return f.err
}

func testCorpus(t *testing.T) *quotes.Corpus {
	t.Helper()
	c, err := quotes.ParseJSON([]byte(`{"quotes":[["Ada","Think first."]]}`))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func newTestGenerator(t *testing.T, stats StatsFetcher, posts PostsFetcher, raster *fakeRaster) (*Generator, fs.ImagePaths) {
	t.Helper()
	paths := fs.NewImagePaths(t.TempDir())
	g := NewGenerator(stats, posts, testCorpus(t), raster, Options{
		Paths:     paths,
		Range:     wakatime.RangeLast7Days,
		Account:   "someone",
		PostCount: 1,
		Caption:   "fresh",
	})
	g.WithClock(func() time.Time { return time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC) }).
		WithRand(rand.New(rand.NewPCG(1, 2)))
	return g, paths
}

func TestRunWritesAllImages(t *testing.T) {
	stats := &fakeStats{langs: []wakatime.Language{{Name: "Go", Percent: 75, Text: "3 hrs"}}}
	posts := &fakePosts{posts: []twitter.Post{{ID: "1", Text: "hello"}}}
	raster := newFakeRaster()
	pub := &fakePublisher{}

	g, paths := newTestGenerator(t, stats, posts, raster)
	g.WithPublisher(pub)

	res, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.RunID == "" {
		t.Error("missing run id")
	}
	if len(res.Files) != 3 || res.Composite != paths.Readme {
		t.Errorf("result = %+v", res)
	}
	for _, p := range append(paths.Cards(), paths.Readme) {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s not written: %v", p, err)
		}
	}
	if strings.Join(raster.appended, ",") != strings.Join(paths.Cards(), ",") {
		t.Errorf("append order = %v", raster.appended)
	}
	if stats.rng != wakatime.RangeLast7Days {
		t.Errorf("range = %q", stats.rng)
	}
	if !strings.Contains(raster.rendered["quote"].Text(), "2024-05-01") {
		t.Errorf("quote card = %q", raster.rendered["quote"].Text())
	}
	if !res.Published || pub.path != paths.Readme || pub.caption != "fresh" {
		t.Errorf("publish = %+v, result %+v", pub, res)
	}
}

func TestRunPostsFailureSkipsComposite(t *testing.T) {
	stats := &fakeStats{langs: []wakatime.Language{{Name: "Go", Percent: 75}}}
	posts := &fakePosts{err: errors.New("rate limited")}
	raster := newFakeRaster()
	pub := &fakePublisher{}

	g, paths := newTestGenerator(t, stats, posts, raster)
	g.WithPublisher(pub)

	// leftovers from an earlier run must not survive
	if err := paths.EnsureDir(); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{paths.Posts, paths.Readme} {
		if err := os.WriteFile(p, []byte("old"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	res, err := g.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "posts: rate limited") {
		t.Errorf("err = %v", err)
	}

	if len(res.Files) != 2 || res.Composite != "" || res.Published {
		t.Errorf("result = %+v", res)
	}
	if len(res.Failed) != 1 || res.Failed[0] != "posts" {
		t.Errorf("failed = %v", res.Failed)
	}
	if raster.appended != nil {
		t.Error("composite should not run")
	}
	if pub.path != "" {
		t.Error("publish should not run")
	}
	for _, p := range []string{paths.Posts, paths.Readme} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("stale %s still present", p)
		}
	}
	if _, err := os.Stat(paths.Languages); err != nil {
		t.Errorf("languages image missing: %v", err)
	}
}

func TestRunCollectsEveryFailure(t *testing.T) {
	raster := newFakeRaster()
	raster.failCard = "quote"

	g, _ := newTestGenerator(t, nil, nil, raster)
	res, err := g.Run(context.Background())

	errs := multierr.Errors(err)
	if len(errs) != 3 {
		t.Fatalf("errors = %v", errs)
	}
	if !errors.Is(err, ErrNoStatsSource) || !errors.Is(err, ErrNoPostsSource) {
		t.Errorf("err = %v", err)
	}
	if strings.Join(res.Failed, ",") != "languages,quote,posts" {
		t.Errorf("failed = %v", res.Failed)
	}
}

func TestRunCompositeFailure(t *testing.T) {
	raster := newFakeRaster()
	raster.appendErr = errors.New("no space left")
	pub := &fakePublisher{}

	g, _ := newTestGenerator(t, &fakeStats{}, &fakePosts{}, raster)
	g.WithPublisher(pub)

	res, err := g.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "composite: no space left") {
		t.Fatalf("err = %v", err)
	}
	if res.Composite != "" || pub.path != "" {
		t.Errorf("result = %+v, publish = %+v", res, pub)
	}
}

func TestRunEmptyDataStillRenders(t *testing.T) {
	raster := newFakeRaster()
	g, _ := newTestGenerator(t, &fakeStats{}, &fakePosts{}, raster)

	if _, err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(raster.rendered["languages"].Text(), "No data for the last 7 days. :(") {
		t.Errorf("languages = %q", raster.rendered["languages"].Text())
	}
	if !strings.Contains(raster.rendered["posts"].Text(), "Nothing posted yet.") {
		t.Errorf("posts = %q", raster.rendered["posts"].Text())
	}
}

func TestRunPublishFailure(t *testing.T) {
	raster := newFakeRaster()
	pub := &fakePublisher{err: errors.New("bot blocked")}
	g, paths := newTestGenerator(t, &fakeStats{}, &fakePosts{}, raster)
	g.WithPublisher(pub)

	res, err := g.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "publish: bot blocked") {
		t.Fatalf("err = %v", err)
	}
	if res.Composite != paths.Readme || res.Published {
		t.Errorf("result = %+v", res)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, _ := newTestGenerator(t, &fakeStats{}, &fakePosts{}, newFakeRaster())
	_, err := g.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestRunWritesSnapshots(t *testing.T) {
	stats := &fakeStats{langs: []wakatime.Language{{Name: "Go", Percent: 60}}}
	posts := &fakePosts{err: errors.New("down")}

	g, _ := newTestGenerator(t, stats, posts, newFakeRaster())
	g.opts.SnapshotDir = t.TempDir()

	res, _ := g.Run(context.Background())

	var last Result
	if err := fs.LoadJSON(g.opts.SnapshotDir, "last_run.json", &last); err != nil {
		t.Fatalf("last_run.json: %v", err)
	}
	if last.RunID != res.RunID || len(last.Failed) != 1 {
		t.Errorf("last run = %+v", last)
	}

	var langs []wakatime.Language
	if err := fs.LoadJSON(g.opts.SnapshotDir, "languages.json", &langs); err != nil {
		t.Fatalf("languages.json: %v", err)
	}
	if len(langs) != 1 || langs[0].Name != "Go" {
		t.Errorf("languages = %+v", langs)
	}

	if _, err := os.Stat(g.opts.SnapshotDir + "/posts.json"); !os.IsNotExist(err) {
		t.Error("posts.json should not exist when the fetch failed")
	}
}

func TestRunLogsPreviousRun(t *testing.T) {
	logDir := t.TempDir()
	if err := log.Init(log.Options{Dir: logDir}); err != nil {
		t.Fatalf("log.Init: %v", err)
	}
	t.Cleanup(func() { _ = log.Init(log.Options{}) })

	g, _ := newTestGenerator(t, &fakeStats{}, &fakePosts{}, newFakeRaster())
	g.opts.SnapshotDir = t.TempDir()

	first, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := g.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	log.Sync()

	data, err := os.ReadFile(filepath.Join(logDir, "app.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if got := strings.Count(string(data), `"previous_run_id":"`+first.RunID+`"`); got != 1 {
		t.Errorf("previous run id logged %d times:\n%s", got, data)
	}
}
