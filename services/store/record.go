package store

import (
	"strings"

	"orionstore-backend/lib/scrapers/fdroid"
)

const (
	// Author stamped onto every record scraped from this source.
	// the update sweeper also uses it to recognize its own records.
	SourceAuthor = "F-Droid"

	defaultCategory = "Utility"
	defaultPlatform = "Android"
)

// AppRecord is one catalog entry in the persisted document format
// consumed by the storefront.
type AppRecord struct {
	Id             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Icon           string   `json:"icon"`
	Version        string   `json:"version"`
	LatestVersion  string   `json:"latestVersion"`
	DownloadUrl    string   `json:"downloadUrl"`
	RepoUrl        string   `json:"repoUrl"`
	GithubRepo     string   `json:"githubRepo"`
	ReleaseKeyword string   `json:"releaseKeyword"`
	PackageName    string   `json:"packageName"`
	Category       string   `json:"category"`
	Platform       string   `json:"platform"`
	Size           string   `json:"size"`
	Author         string   `json:"author"`
	Screenshots    []string `json:"screenshots"`
}

// RecordFromApp maps scraped package metadata into the catalog format.
func RecordFromApp(app fdroid.App) AppRecord {
	screenshots := app.Screenshots
	if screenshots == nil {
		screenshots = []string{}
	}
	return AppRecord{
		Id:            strings.ReplaceAll(app.PackageId, ".", "-"),
		Name:          app.Name,
		Description:   app.Summary,
		Icon:          app.Icon,
		Version:       app.Version,
		LatestVersion: app.Version,
		DownloadUrl:   app.DownloadUrl,
		RepoUrl:       app.PageUrl,
		// empty for this source, the download url is direct
		GithubRepo:     "",
		ReleaseKeyword: app.PackageId,
		PackageName:    app.PackageId,
		Category:       defaultCategory,
		Platform:       defaultPlatform,
		Size:           app.Size,
		Author:         SourceAuthor,
		Screenshots:    screenshots,
	}
}
