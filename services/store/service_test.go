package store

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"orionstore-backend/lib/scrapers/fdroid"

	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	apps  map[string]fdroid.App
	calls []string
}

func (f *fakeExtractor) App(ctx context.Context, input string) (fdroid.App, error) {
	f.calls = append(f.calls, input)
	app, ok := f.apps[input]
	if !ok {
		return fdroid.App{}, &fdroid.StatusError{Url: input, Code: http.StatusNotFound}
	}
	return app, nil
}

func testApp(id, version string) fdroid.App {
	return fdroid.App{
		PackageId:   id,
		Name:        "App " + id,
		Summary:     "summary of " + id,
		Icon:        "https://f-droid.org/repo/icons/" + id + ".png",
		Version:     version,
		DownloadUrl: "https://f-droid.org/repo/" + id + "_" + version + ".apk",
		PageUrl:     "https://f-droid.org/en/packages/" + id + "/",
		Size:        "Varies",
	}
}

type testEnv struct {
	service   Service
	store     Store
	extractor *fakeExtractor
	tracked   string
}

func setupService(t *testing.T, apps map[string]fdroid.App) testEnv {
	dir := t.TempDir()
	extractor := &fakeExtractor{apps: apps}
	catalog := Store{Path: filepath.Join(dir, "apps.json")}
	tracked := filepath.Join(dir, "tracked_apps.txt")

	service := NewService(Options{
		Store:       catalog,
		Extractor:   extractor,
		TrackedPath: tracked,
	})
	return testEnv{
		service:   service,
		store:     catalog,
		extractor: extractor,
		tracked:   tracked,
	}
}

func writeTracked(t *testing.T, env testEnv, contents string) {
	err := os.WriteFile(env.tracked, []byte(contents), 0644)
	require.NoError(t, err)
}

func TestSyncIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, map[string]fdroid.App{
		"org.example.app": testApp("org.example.app", "1.0.0"),
		"org.other.app":   testApp("org.other.app", "2.1.0"),
	})
	writeTracked(t, env, `# tracked
org.example.app
org.other.app
`)

	env.service.Sync(ctx)
	first := env.store.Load(ctx)
	require.Len(t, first, 2)
	require.Equal(t, "org.example.app", first[0].PackageName)
	require.Equal(t, "org.other.app", first[1].PackageName)

	env.service.Sync(ctx)
	second := env.store.Load(ctx)
	require.Equal(t, first, second)
}

func TestSyncSkipsExistingRecord(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, map[string]fdroid.App{
		"org.example.app": testApp("org.example.app", "1.0.0"),
	})

	existing := RecordFromApp(testApp("org.example.app", "1.0.0"))
	err := env.store.Save(ctx, []AppRecord{existing})
	require.NoError(t, err)

	// full page urls in the tracked list normalize to the package id
	writeTracked(t, env, "https://f-droid.org/en/packages/org.example.app/\n")

	env.service.Sync(ctx)

	records := env.store.Load(ctx)
	require.Len(t, records, 1)
	require.Equal(t, existing, records[0])
	// the sweep still version-checked the existing record
	require.Equal(t, []string{"org.example.app"}, env.extractor.calls)
}

func TestSyncContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, map[string]fdroid.App{
		"org.good.app": testApp("org.good.app", "1.0.0"),
	})
	writeTracked(t, env, "org.broken.app\norg.good.app\n")

	env.service.Sync(ctx)

	records := env.store.Load(ctx)
	require.Len(t, records, 1)
	require.Equal(t, "org.good.app", records[0].PackageName)
}

func TestSyncMissingTrackedList(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, map[string]fdroid.App{
		"org.example.app": testApp("org.example.app", "1.0.0"),
	})

	err := env.store.Save(ctx, []AppRecord{
		RecordFromApp(testApp("org.example.app", "1.0.0")),
	})
	require.NoError(t, err)

	env.service.Sync(ctx)

	// nothing added, but the update sweep still ran
	require.Len(t, env.store.Load(ctx), 1)
	require.Equal(t, []string{"org.example.app"}, env.extractor.calls)
}

func TestUpdateOverwritesVersionFields(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, map[string]fdroid.App{
		"org.example.app": testApp("org.example.app", "2.0.0"),
	})

	stored := RecordFromApp(testApp("org.example.app", "1.0.0"))
	foreign := AppRecord{
		Name:        "Foreign App",
		PackageName: "com.foreign.app",
		RepoUrl:     "https://github.com/foreign/app",
		Author:      "Somebody",
		Screenshots: []string{},
	}
	err := env.store.Save(ctx, []AppRecord{stored, foreign})
	require.NoError(t, err)

	updated := env.service.Update(ctx)
	require.Equal(t, 1, updated)

	records := env.store.Load(ctx)
	require.Len(t, records, 2)

	fresh := testApp("org.example.app", "2.0.0")
	require.Equal(t, "2.0.0", records[0].Version)
	require.Equal(t, "2.0.0", records[0].LatestVersion)
	require.Equal(t, fresh.DownloadUrl, records[0].DownloadUrl)
	require.Equal(t, fresh.Icon, records[0].Icon)
	// everything else stays as stored
	require.Equal(t, stored.Name, records[0].Name)
	require.Equal(t, stored.Description, records[0].Description)
	require.Equal(t, stored.RepoUrl, records[0].RepoUrl)
	require.Equal(t, stored.Id, records[0].Id)

	// non-source records are never touched or fetched
	require.Equal(t, foreign, records[1])
	require.Equal(t, []string{"org.example.app"}, env.extractor.calls)
}

func TestUpdateLeavesEqualVersionAlone(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, map[string]fdroid.App{
		"org.example.app": testApp("org.example.app", "1.0.0"),
	})

	stored := RecordFromApp(testApp("org.example.app", "1.0.0"))
	err := env.store.Save(ctx, []AppRecord{stored})
	require.NoError(t, err)

	updated := env.service.Update(ctx)
	require.Equal(t, 0, updated)
	require.Equal(t, []AppRecord{stored}, env.store.Load(ctx))
}

func TestUpdateIgnoresUnknownVersion(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, map[string]fdroid.App{
		"org.example.app": testApp("org.example.app", fdroid.VersionUnknown),
	})

	stored := RecordFromApp(testApp("org.example.app", "1.0.0"))
	err := env.store.Save(ctx, []AppRecord{stored})
	require.NoError(t, err)

	updated := env.service.Update(ctx)
	require.Equal(t, 0, updated)
	require.Equal(t, []AppRecord{stored}, env.store.Load(ctx))
}

func TestUpdateKeepsIconWhenMissing(t *testing.T) {
	ctx := context.Background()
	fresh := testApp("org.example.app", "2.0.0")
	fresh.Icon = ""
	env := setupService(t, map[string]fdroid.App{
		"org.example.app": fresh,
	})

	stored := RecordFromApp(testApp("org.example.app", "1.0.0"))
	err := env.store.Save(ctx, []AppRecord{stored})
	require.NoError(t, err)

	updated := env.service.Update(ctx)
	require.Equal(t, 1, updated)

	records := env.store.Load(ctx)
	require.Equal(t, "2.0.0", records[0].LatestVersion)
	require.Equal(t, stored.Icon, records[0].Icon)
}

func TestUpdateSourceMarkerFilter(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, map[string]fdroid.App{
		"org.by.author": testApp("org.by.author", "1.0.0"),
		"org.by.repo":   testApp("org.by.repo", "1.0.0"),
	})

	// either marker alone is enough for the sweep to pick a record up
	byAuthor := RecordFromApp(testApp("org.by.author", "1.0.0"))
	byAuthor.RepoUrl = "https://example.com/mirror/org.by.author"
	byRepo := RecordFromApp(testApp("org.by.repo", "1.0.0"))
	byRepo.Author = "Somebody Else"
	anonymous := RecordFromApp(testApp("org.anonymous", "1.0.0"))
	anonymous.RepoUrl = "https://example.com/org.anonymous"
	anonymous.Author = "Somebody Else"
	unnamed := RecordFromApp(testApp("", "1.0.0"))

	err := env.store.Save(ctx, []AppRecord{byAuthor, byRepo, anonymous, unnamed})
	require.NoError(t, err)

	env.service.Update(ctx)
	require.Equal(t, []string{"org.by.author", "org.by.repo"}, env.extractor.calls)
}

func TestUpdateContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, map[string]fdroid.App{
		"org.good.app": testApp("org.good.app", "2.0.0"),
	})

	broken := RecordFromApp(testApp("org.broken.app", "1.0.0"))
	good := RecordFromApp(testApp("org.good.app", "1.0.0"))
	err := env.store.Save(ctx, []AppRecord{broken, good})
	require.NoError(t, err)

	updated := env.service.Update(ctx)
	require.Equal(t, 1, updated)

	records := env.store.Load(ctx)
	require.Equal(t, broken, records[0])
	require.Equal(t, "2.0.0", records[1].LatestVersion)
}
