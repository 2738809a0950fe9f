// Package reportpdf exports static HTML report pages into a single combined
// PDF. Pages are rendered in headless Chrome, rasterized, and composed as
// images, so the output looks exactly like the report on screen.
//
// # Pipelines
//
// [ScreenshotRenderer] validates every page name strictly, then navigates a
// single browser tab to each page, hides the sidebar, navigation and footer
// chrome, and screenshots the main content element. Each screenshot is scaled
// to fit one A4 page with margins. Any failure aborts the whole export:
//
//	r := reportpdf.NewScreenshotRenderer(reportpdf.ScreenshotConfig{
//	    BaseURL: "http://localhost:3000",
//	    Root:    "./public/pages",
//	})
//	defer r.Close()
//
//	res, err := r.Render(ctx, []string{"page1.html", "page2.html"})
//
// [CaptureRenderer] fetches each page over HTTP, extracts its main content
// and styles offline, mounts the fragment into a shared stage and rasterizes
// it. Tall pages continue over as many PDF pages as they need. Pages that
// fail are logged and skipped:
//
//	res, err := reportpdf.RenderCapture(ctx, reportpdf.CaptureConfig{
//	    BaseURL: "http://localhost:3000",
//	}, pages)
//	for _, p := range res.Skipped() {
//	    log.Println(p)
//	}
//
// Both renderers accept a [FailurePolicy] through [WithFailurePolicy] when
// callers want one behaviour for both.
//
// [RemoteExporter] asks a running export server for the PDF instead of
// rendering locally.
//
// # Page names
//
// Page names are bare file names such as "page3.html". [Sanitize] applies the
// naming rules under a [Policy]: [Strict] rejects bad input with
// [ErrInvalidPageName], [Lenient] replaces it with [DefaultPage].
// [ResolvePages] and [DiscoverPages] build ordered page lists from links.
//
// # Results
//
// A [Result] gives access to the PDF and to what happened during the export:
//
//	res.Bytes()                       // []byte
//	res.WriteToFile(res.Filename(), 0o644)
//	res.PageCount()                   // PDF pages, including overflow pages
//	res.Skipped()                     // []*PageError
//
// Chrome or Chromium must be available in PATH, or use [WithAutoDownload]:
//
//	r := reportpdf.NewScreenshotRenderer(sc, reportpdf.WithAutoDownload())
package reportpdf
