package store

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"orionstore-backend/lib/scrapers/fdroid"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/store")

// Extractor scrapes the metadata page of a single package,
// satisfied by *fdroid.Client.
type Extractor interface {
	App(ctx context.Context, input string) (fdroid.App, error)
}

type Options struct {
	Store     Store
	Extractor Extractor
	// path of the tracked-apps list read by Sync
	TrackedPath string
	// defaults to "f-droid.org"
	SourceDomain string
}

type Service struct {
	store        Store
	extractor    Extractor
	trackedPath  string
	sourceDomain string
}

func NewService(opts Options) Service {
	if opts.SourceDomain == "" {
		opts.SourceDomain = "f-droid.org"
	}
	return Service{
		store:        opts.Store,
		extractor:    opts.Extractor,
		trackedPath:  opts.TrackedPath,
		sourceDomain: opts.SourceDomain,
	}
}

func lastPathSegment(line string) string {
	line = strings.TrimSuffix(line, "/")
	return line[strings.LastIndex(line, "/")+1:]
}

func hasPackage(records []AppRecord, packageName string) bool {
	return slices.ContainsFunc(records, func(r AppRecord) bool {
		return r.PackageName == packageName
	})
}

// Sync ensures every entry of the tracked list has a catalog record,
// then version-checks the whole catalog. entries that are already
// catalogued are left untouched, so running it twice is a no-op.
// per-entry scrape failures are logged and skipped.
func (s Service) Sync(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "service:Sync")
	defer span.End()

	entries, err := ReadTrackedList(s.trackedPath)
	if err != nil {
		slog.WarnContext(ctx, "tracked list unavailable, skipping sync", "path", s.trackedPath, "err", err)
	} else {
		slog.InfoContext(ctx, "read tracked list", "path", s.trackedPath, "entries", len(entries))
	}

	records := s.store.Load(ctx)
	modified := false

	for _, line := range entries {
		packageName := lastPathSegment(line)

		if hasPackage(records, packageName) {
			slog.DebugContext(ctx, "already tracked", "package", packageName)
			continue
		}

		slog.InfoContext(ctx, "new app detected in list", "package", packageName)
		app, err := s.extractor.App(ctx, packageName)
		if err != nil {
			slog.ErrorContext(ctx, "failed to scrape package, skipping", "package", packageName, "err", err)
			continue
		}

		record := RecordFromApp(app)
		records = append(records, record)
		modified = true
		slog.InfoContext(ctx, "added app", "name", record.Name, "package", record.PackageName)
	}

	if modified {
		err := s.store.Save(ctx, records)
		if err != nil {
			slog.ErrorContext(ctx, "failed to save catalog", "err", err)
		}
	}

	// always version-check after a sync so new and pre-existing
	// records all get checked in one pass
	s.Update(ctx)
}

// Update re-scrapes every catalogued record that came from the source
// repository and overwrites the mutable fields when the version string
// changed. returns the number of updated records.
func (s Service) Update(ctx context.Context) int {
	ctx, span := tracer.Start(ctx, "service:Update")
	defer span.End()

	records := s.store.Load(ctx)
	updated := 0

	slog.InfoContext(ctx, "checking for updates", "records", len(records))

	for i := range records {
		record := &records[i]

		// a record manually edited to lose one source marker is
		// still caught by the other
		if !strings.Contains(record.RepoUrl, s.sourceDomain) && record.Author != SourceAuthor {
			continue
		}
		if record.PackageName == "" {
			continue
		}

		app, err := s.extractor.App(ctx, record.PackageName)
		if err != nil {
			slog.ErrorContext(ctx, "failed to scrape package, skipping", "package", record.PackageName, "err", err)
			continue
		}

		if app.Version == record.LatestVersion || app.Version == fdroid.VersionUnknown {
			slog.DebugContext(ctx, "up to date", "package", record.PackageName)
			continue
		}

		slog.InfoContext(
			ctx, "update found",
			"package", record.PackageName,
			"from", record.LatestVersion,
			"to", app.Version,
		)
		record.Version = app.Version
		record.LatestVersion = app.Version
		record.DownloadUrl = app.DownloadUrl
		if app.Icon != "" {
			record.Icon = app.Icon
		}
		updated++
	}

	if updated > 0 {
		err := s.store.Save(ctx, records)
		if err != nil {
			slog.ErrorContext(ctx, "failed to save catalog", "err", err)
		}
		slog.InfoContext(ctx, "updated apps", "count", updated)
	} else {
		slog.InfoContext(ctx, "all apps are up to date")
	}

	return updated
}
