package reportpdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const stageID = "__reportpdf_stage"

// stageHeight is the initial viewport height. Clipped screenshots capture
// beyond it.
const stageHeight = 1800

// rodStages opens capture stages in a browser managed by rod.
type rodStages struct {
	cfg rendererConfig
}

// NewRodStageFactory returns the default [StageFactory] used by
// [CaptureRenderer]. When no Chrome path is configured, rod finds a local
// browser or downloads one.
func NewRodStageFactory(opts ...Option) StageFactory {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &rodStages{cfg: cfg}
}

func (f *rodStages) Open(ctx context.Context, hostURL string, width int) (Stage, error) {
	path, err := f.cfg.execPath()
	if err != nil {
		return nil, err
	}

	l := launcher.New().
		Headless(f.cfg.headless != "").
		NoSandbox(f.cfg.noSandbox).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("hide-scrollbars")
	if path != "" {
		l = l.Bin(path)
	}

	wsURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		_ = shutdownStage(l)
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	s := &rodStage{launcher: l, browser: b}
	if err := s.open(ctx, hostURL, width); err != nil {
		_ = s.Close()
		return nil, err
	}
	f.cfg.logger.Debug("capture stage ready")
	return s, nil
}

type rodStage struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	once     sync.Once
}

func (s *rodStage) open(ctx context.Context, hostURL string, width int) error {
	p, err := s.browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return fmt.Errorf("creating page: %w", err)
	}
	s.page = p

	err = p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            stageHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("setting viewport: %w", err)
	}

	if err := p.Context(ctx).Navigate(hostURL); err != nil {
		return fmt.Errorf("navigating to %s: %w", hostURL, err)
	}
	if err := p.Context(ctx).WaitLoad(); err != nil {
		return fmt.Errorf("loading %s: %w", hostURL, err)
	}

	_, err = p.Context(ctx).Eval(`(id, width) => {
  let host = document.getElementById(id);
  if (!host) {
    host = document.createElement('div');
    host.id = id;
    document.body.appendChild(host);
  }
  for (const el of Array.from(document.body.children)) {
    if (el !== host) el.style.setProperty('display', 'none', 'important');
  }
  host.style.cssText = 'position:absolute;left:0;top:0;margin:0;padding:0;' +
    'width:' + width + 'px;background:#ffffff;z-index:2147483647;';
  window.scrollTo(0, 0);
  return true;
}`, stageID, width)
	if err != nil {
		return fmt.Errorf("preparing stage: %w", err)
	}
	return nil
}

func (s *rodStage) Mount(ctx context.Context, c StageContent) error {
	links := c.StyleLinks
	if links == nil {
		links = []string{}
	}
	_, err := s.page.Context(ctx).Eval(`(id, html, styles, links) => {
  const host = document.getElementById(id);
  host.innerHTML = '';
  window.__reportpdfLinks = [];
  if (styles) {
    const style = document.createElement('style');
    style.textContent = styles;
    host.appendChild(style);
  }
  for (const href of links) {
    const link = document.createElement('link');
    link.rel = 'stylesheet';
    link.href = href;
    window.__reportpdfLinks.push(new Promise((resolve) => {
      link.onload = resolve;
      link.onerror = resolve;
    }));
    host.appendChild(link);
  }
  const root = document.createElement('div');
  root.innerHTML = html;
  const main = root.firstElementChild;
  if (main) {
    main.style.width = '100%';
    main.style.margin = '0 auto';
  }
  host.appendChild(root);
  return true;
}`, stageID, c.HTML, c.Styles, links)
	return err
}

func (s *rodStage) Settle(ctx context.Context, t SettleTimings) error {
	_, err := s.page.Context(ctx).Eval(`async (linkWait, fontWait) => {
  const timeout = (ms) => new Promise((resolve) => setTimeout(resolve, ms));
  await new Promise((resolve) => requestAnimationFrame(() => resolve()));
  const links = window.__reportpdfLinks || [];
  if (links.length > 0) {
    await Promise.race([Promise.all(links), timeout(linkWait)]);
  }
  if (document.fonts && document.fonts.ready) {
    try {
      await Promise.race([document.fonts.ready, timeout(fontWait)]);
    } catch (e) {}
  }
  return true;
}`, t.StylesheetWait.Milliseconds(), t.FontWait.Milliseconds())
	return err
}

func (s *rodStage) Rasterize(ctx context.Context, scale float64) (RasterImage, error) {
	p := s.page.Context(ctx)
	res, err := p.Eval(`(id) => {
  const r = document.getElementById(id).getBoundingClientRect();
  return { x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height };
}`, stageID)
	if err != nil {
		return RasterImage{}, fmt.Errorf("measuring stage: %w", err)
	}

	clip := &proto.PageViewport{
		X:      res.Value.Get("x").Num(),
		Y:      res.Value.Get("y").Num(),
		Width:  res.Value.Get("width").Num(),
		Height: res.Value.Get("height").Num(),
		Scale:  scale,
	}
	if clip.Width <= 0 || clip.Height <= 0 {
		return RasterImage{}, errors.New("stage has no visible content")
	}

	data, err := p.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:                proto.PageCaptureScreenshotFormatPng,
		Clip:                  clip,
		CaptureBeyondViewport: true,
	})
	if err != nil {
		return RasterImage{}, fmt.Errorf("rasterizing stage: %w", err)
	}
	return DecodeRaster(data)
}

// Close closes the page and browser, stops the browser process and removes
// the launcher's user data directory.
func (s *rodStage) Close() error {
	var err error
	s.once.Do(func() {
		closers := []io.Closer{s.browser}
		if s.page != nil {
			closers = []io.Closer{s.page, s.browser}
		}
		err = shutdownStage(s.launcher, closers...)
	})
	return err
}

// browserProcess is a launched browser process.
type browserProcess interface {
	Kill()
	Cleanup()
}

// shutdownStage closes every closer in order, then kills proc and waits for
// it to exit. Cleanup blocks until the process is gone, so Kill must come
// first.
func shutdownStage(proc browserProcess, closers ...io.Closer) error {
	var errs []error
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	proc.Kill()
	proc.Cleanup()
	return errors.Join(errs...)
}
