package fdroid

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"orionstore-backend/lib/htmlutil"
	"orionstore-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

const (
	// version text could not be determined from the page
	VersionUnknown = "Unknown"
	// no packaged binary link was found on the page
	DownloadUnresolved = "#"

	DefaultBaseUrl = "https://f-droid.org/en/packages/"
	DefaultTimeout = time.Second * 15

	fallbackSummary = "No description available."
	binaryExtension = ".apk"
)

// App is the metadata scraped off a single package page.
type App struct {
	PackageId   string
	Name        string
	Summary     string
	Icon        string
	Version     string
	DownloadUrl string
	PageUrl     string
	Size        string
	Screenshots []string
}

// StatusError reports a fetch that completed with a non-200 status,
// as opposed to a transport-level failure.
type StatusError struct {
	Url  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.Code, e.Url)
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
}

type ClientOptions struct {
	// defaults to DefaultBaseUrl
	BaseUrl string
	// defaults to DefaultTimeout
	Timeout time.Duration
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(client, "scrapers/fdroid/http")

	return &Client{
		BaseUrl: baseUrl,
		Http:    client,
	}, nil
}

// NormalizePackageId accepts either a bare package id or a full package
// page url and returns the package id.
func (c *Client) NormalizePackageId(input string) string {
	id := strings.TrimSpace(input)
	if strings.Contains(id, c.BaseUrl.Hostname()) {
		id = strings.TrimSuffix(id, "/")
		id = id[strings.LastIndex(id, "/")+1:]
	}
	return id
}

// PageUrl returns the canonical package page url for a package id.
func (c *Client) PageUrl(packageId string) string {
	return strings.TrimSuffix(c.BaseUrl.String(), "/") + "/" + packageId + "/"
}

func (c *Client) origin() string {
	return c.BaseUrl.Scheme + "://" + c.BaseUrl.Host
}

// App fetches and parses the package page for the given id or url.
// missing page elements fall back to field defaults, only the fetch
// itself can fail.
func (c *Client) App(ctx context.Context, input string) (App, error) {
	ctx, span := tracer.Start(ctx, "client:App")
	defer span.End()

	packageId := c.NormalizePackageId(input)
	pageUrl := c.PageUrl(packageId)

	slog.InfoContext(ctx, "fetching package metadata", "package", packageId)

	res, err := c.Http.R().
		SetContext(ctx).
		Get(pageUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch package page")
		return App{}, err
	}
	if res.StatusCode() != http.StatusOK {
		err := &StatusError{Url: pageUrl, Code: res.StatusCode()}
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return App{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse html")
		return App{}, err
	}

	app := c.parseApp(doc, packageId)
	app.PageUrl = pageUrl
	return app, nil
}

func (c *Client) parseApp(doc *goquery.Document, packageId string) App {
	origin := c.origin()

	name := strings.TrimSpace(doc.Find(".package-name").First().Text())
	if name == "" {
		name = packageId
	}

	summary := strings.TrimSpace(doc.Find(".package-summary").First().Text())
	if summary == "" {
		summary = fallbackSummary
	}

	icon := doc.Find(".package-icon").First().AttrOr("src", "")
	icon = htmlutil.AbsoluteUrl(origin, icon)

	var screenshots []string
	doc.Find(".screenshot-container img").Each(func(_ int, img *goquery.Selection) {
		src := img.AttrOr("src", "")
		if src == "" {
			return
		}
		screenshots = append(screenshots, htmlutil.AbsoluteUrl(origin, src))
	})

	// the first version block is the suggested release
	version := VersionUnknown
	downloadUrl := DownloadUnresolved
	versionBlock := doc.Find(".package-version").First()
	if versionBlock.Length() > 0 {
		raw := strings.TrimSpace(versionBlock.Find(".package-version-header").First().Text())
		// "Version 1.2.3 (Added on ...)" -> "1.2.3"
		raw = strings.TrimSpace(strings.ReplaceAll(raw, "Version", ""))
		if fields := strings.Fields(raw); len(fields) > 0 {
			version = fields[0]
		}

		versionBlock.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href := a.AttrOr("href", "")
			if !strings.HasSuffix(href, binaryExtension) {
				return true
			}
			downloadUrl = htmlutil.AbsoluteUrl(origin, href)
			return false
		})
	}

	return App{
		PackageId:   packageId,
		Name:        name,
		Summary:     summary,
		Icon:        icon,
		Version:     version,
		DownloadUrl: downloadUrl,
		Size:        "Varies",
		Screenshots: screenshots,
	}
}
