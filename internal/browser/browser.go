package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"quiz-solver/internal/quiz"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

type Options struct {
	NavTimeout    time.Duration
	Settle        time.Duration
	ResultTimeout time.Duration
	HTTPClient    *http.Client
	Logger        logrus.FieldLogger
}

type Browser struct {
	opts Options
	dl   *Downloader
	log  logrus.FieldLogger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

func New(opts Options) *Browser {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}
	if opts.ResultTimeout <= 0 {
		opts.ResultTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Browser{
		opts: opts,
		dl:   NewDownloader(opts.HTTPClient, opts.Logger),
		log:  opts.Logger,
	}
}

// Start sobe o Chromium. Chamado implicitamente por FetchQuizPage.
func (b *Browser) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.startLocked()
}

func (b *Browser) startLocked() error {
	if b.browserCtx != nil {
		if b.browserCtx.Err() == nil {
			return nil
		}
		// processo morreu (crash ou kill); sobe de novo
		b.log.WithError(b.browserCtx.Err()).Warn("browser context is gone, restarting")
		b.resetLocked()
	}
	b.log.Info("starting browser")

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// o primeiro Run sem ações só inicializa o processo
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("start browser: %w", err)
	}

	b.allocCancel = allocCancel
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	b.log.Info("browser started")
	return nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx == nil {
		return nil
	}
	err := chromedp.Cancel(b.browserCtx)
	b.resetLocked()
	b.log.Info("browser stopped")
	return err
}

func (b *Browser) resetLocked() {
	b.browserCancel()
	b.allocCancel()
	b.browserCtx, b.browserCancel, b.allocCancel = nil, nil, nil
}

// discard derruba a instância atual se ainda for ctx; a próxima aba sobe outra.
func (b *Browser) discard(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browserCtx != nil && b.browserCtx == ctx {
		b.resetLocked()
	}
}

func (b *Browser) tab() (context.Context, context.Context, context.CancelFunc, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.startLocked(); err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := chromedp.NewContext(b.browserCtx)
	return b.browserCtx, ctx, cancel, nil
}

// FetchQuizPage abre uma aba, espera o JavaScript rodar e extrai o texto do
// elemento #result (ou do body quando #result não aparece).
func (b *Browser) FetchQuizPage(ctx context.Context, url string) (quiz.Page, error) {
	parent, tabCtx, closeTab, err := b.tab()
	if err != nil {
		return quiz.Page{}, err
	}
	defer closeTab()

	// cancelamento do chamador fecha a aba
	stop := context.AfterFunc(ctx, closeTab)
	defer stop()

	log := b.log.WithField("url", url)
	log.Info("fetching quiz page")

	// cria a aba com o ctx dela; timeouts derivados depois não a fecham
	if err := chromedp.Run(tabCtx); err != nil {
		if ctx.Err() != nil {
			return quiz.Page{}, ctx.Err()
		}
		// aba não abre com o processo vivo: descarta a instância
		b.discard(parent)
		return quiz.Page{}, fmt.Errorf("open tab: %w", err)
	}

	navCtx, cancelNav := context.WithTimeout(tabCtx, b.opts.NavTimeout)
	defer cancelNav()

	var html string
	err = chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.opts.Settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return quiz.Page{}, ctx.Err()
		}
		return quiz.Page{}, fmt.Errorf("fetch quiz page %s: %w", url, err)
	}

	text, err := b.resultText(tabCtx)
	if err != nil {
		return quiz.Page{}, fmt.Errorf("extract quiz text %s: %w", url, err)
	}
	log.WithField("preview", quiz.Preview(text, 200)).Info("extracted quiz content")

	submitURL := quiz.ExtractSubmitURL(text)
	if submitURL == "" {
		log.Warn("could not extract submit URL from quiz text")
	}

	return quiz.Page{
		Question:  text,
		SubmitURL: submitURL,
		RawHTML:   html,
		QuizURL:   url,
	}, nil
}

func (b *Browser) resultText(tabCtx context.Context) (string, error) {
	var text string

	resCtx, cancel := context.WithTimeout(tabCtx, b.opts.ResultTimeout)
	err := chromedp.Run(resCtx, chromedp.Text("#result", &text, chromedp.ByQuery, chromedp.NodeVisible))
	cancel()
	if err == nil {
		b.log.Debug("extracted content from #result element")
		return text, nil
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		b.log.WithError(err).Debug("#result lookup failed")
	}

	if err := chromedp.Run(tabCtx, chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	b.log.Debug("extracted content from body element")
	return text, nil
}

func (b *Browser) DownloadFile(ctx context.Context, url string) ([]byte, error) {
	return b.dl.DownloadFile(ctx, url)
}
