package content

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/avast/retry-go/v4"
	"github.com/yosida95/uritemplate/v3"

	"github.com/FocuswithJustin/versefinder/core/errors"
	"github.com/FocuswithJustin/versefinder/core/refparse"
)

// maxBodyBytes caps how much of a provider page is read.
const maxBodyBytes = 4 << 20

// HTTPConfig configures an HTTPProvider.
type HTTPConfig struct {
	// URLTemplate is an RFC 6570 template over the variables book, osis,
	// chapter, start and end, e.g. "https://example.org/{osis}/{chapter}".
	// For a whole-chapter reference start and end are undefined.
	URLTemplate string

	// XPath selects the nodes whose text forms the returned lines.
	XPath string

	Timeout  time.Duration
	Attempts uint
	Delay    time.Duration

	// Client overrides the HTTP client (optional).
	Client *http.Client
}

// HTTPProvider fetches a page per reference and extracts text with XPath.
// Pages are parsed leniently so ordinary HTML works.
type HTTPProvider struct {
	cfg    HTTPConfig
	tmpl   *uritemplate.Template
	expr   *xpath.Expr
	client *http.Client
}

var templateVars = []string{"book", "osis", "chapter", "start", "end"}

// NewHTTPProvider validates cfg and compiles its URL template and XPath
// expression.
func NewHTTPProvider(cfg HTTPConfig) (*HTTPProvider, error) {
	if cfg.URLTemplate == "" {
		return nil, errors.NewValidation("provider.url", "URL template is required")
	}
	tmpl, err := uritemplate.New(cfg.URLTemplate)
	if err != nil {
		return nil, errors.NewValidation("provider.url", fmt.Sprintf("invalid URL template: %v", err))
	}
	for _, name := range tmpl.Varnames() {
		if !slices.Contains(templateVars, name) {
			return nil, errors.NewValidation("provider.url", fmt.Sprintf("unknown template variable %q", name))
		}
	}
	if cfg.XPath == "" {
		return nil, errors.NewValidation("provider.xpath", "XPath expression is required")
	}
	expr, err := xpath.Compile(cfg.XPath)
	if err != nil {
		return nil, errors.NewValidation("provider.xpath", fmt.Sprintf("invalid xpath: %v", err))
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 200 * time.Millisecond
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &HTTPProvider{cfg: cfg, tmpl: tmpl, expr: expr, client: client}, nil
}

// Name implements Provider.
func (p *HTTPProvider) Name() string { return "http" }

// URL renders the page URL for ref.
func (p *HTTPProvider) URL(ref refparse.Reference) (string, error) {
	r := ref.Ref()
	osis := ref.OSIS
	if osis == "" {
		osis = ref.Book
	}
	values := uritemplate.Values{
		"book":    uritemplate.String(ref.Book),
		"osis":    uritemplate.String(osis),
		"chapter": uritemplate.String(strconv.Itoa(r.Chapter)),
	}
	if !r.IsChapter() {
		values.Set("start", uritemplate.String(strconv.Itoa(r.VerseStart)))
		values.Set("end", uritemplate.String(strconv.Itoa(r.VerseEnd)))
	}
	return p.tmpl.Expand(values)
}

// Lookup implements Provider. Network errors and 5xx/429 responses are
// retried; other failures are returned at once.
func (p *HTTPProvider) Lookup(ctx context.Context, ref refparse.Reference) ([]string, error) {
	target, err := p.URL(ref)
	if err != nil {
		return nil, errors.NewProvider(p.Name(), ref.String(), err)
	}

	var lines []string
	err = retry.Do(
		func() error {
			var err error
			lines, err = p.fetch(ctx, target)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(p.cfg.Attempts),
		retry.Delay(p.cfg.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		return nil, errors.NewProvider(p.Name(), ref.String(), err)
	}
	if len(lines) == 0 {
		return nil, errors.NewNotFound("verses", ref.String())
	}
	return lines, nil
}

func (p *HTTPProvider) fetch(ctx context.Context, target string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	req.Header.Set("Accept", "text/html, application/xhtml+xml, application/xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, retry.Unrecoverable(errors.NewNotFound("page", target))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, retry.Unrecoverable(fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	doc, err := xmlquery.ParseWithOptions(io.LimitReader(resp.Body, maxBodyBytes), xmlquery.ParserOptions{
		Decoder: &xmlquery.DecoderOptions{
			Strict:    false,
			AutoClose: xml.HTMLAutoClose,
			Entity:    xml.HTMLEntity,
		},
	})
	if err != nil {
		return nil, retry.Unrecoverable(errors.NewParse("HTML", target, err.Error()))
	}

	var lines []string
	for _, n := range xmlquery.QuerySelectorAll(doc, p.expr) {
		text := strings.Join(strings.Fields(n.InnerText()), " ")
		if text != "" {
			lines = append(lines, text)
		}
	}
	return lines, nil
}
