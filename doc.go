// Package html2pdf converts HTML trees to PDF by rasterizing them in
// headless Chrome and placing the page images into a PDF document.
//
// # Quick Start
//
// Queue the work on a Worker, then drain it:
//
//	w := html2pdf.New()
//	defer w.Close()
//
//	_, err := w.
//	    Set(html2pdf.Options{"margin": []float64{10, 15}}).
//	    From("<h1>Hello</h1><p>World</p>").
//	    Save("hello.pdf").
//	    Run(ctx)
//
// Convert does the same in one call:
//
//	err := html2pdf.Convert(ctx, markup, "hello.pdf", html2pdf.Options{"filename": "hello.pdf"})
//
// # Stages
//
// A source goes through these stages, each producing the next one's input:
//
//  1. container: the source is cloned into a container as wide as the page
//     content box and attached to a live document inside an overlay
//  2. surface(s): the container is captured, whole or page by page
//  3. image(s): the captures are encoded as JPEG, PNG or GIF
//  4. document: every image is drawn on a page of its own, inside the margins
//
// To(target) queues a stage; stages missing at run time are produced first,
// and stages already produced are not redone. From accepts any stage's
// input, so a pipeline can also start from an image or an encoded picture.
//
// # Settings
//
// Set takes a map of settings:
//
//	filename     output name used by Save and data URIs
//	margin       a number, [vertical, horizontal] or [top, right, bottom, left]
//	image        {type: jpeg|png|gif, quality: 0..1}
//	enableLinks  add link annotations for anchors (multi-page captures)
//	renderer     {scale, backgroundColor, javascriptEnabled, ...}
//	pdf          {format, size, unit, orientation, compress}
//	properties   {title, subject, author, keywords, creator}
//	style, css   stylesheets of the live document
//
// Set with a state key (source, surface, imgs, document, pageSize, ...)
// injects an intermediate result instead. Get reads either.
//
// # Output
//
// Output exports the document or the single image as bytes, base64 or a
// data URI; Save writes the document to a file. Listen reports progress as
// steps complete.
//
// # Browser Requirements
//
// Rasterization requires Chrome/Chromium. The rod backend downloads a
// managed Chromium on first run (~/.cache/rod/browser/); the chromedp
// backend uses the Chrome installed on the system.
//
// For containers and CI environments, set ROD_NO_SANDBOX=1 to disable the
// Chrome sandbox. Use ROD_BROWSER_BIN to specify a custom Chrome binary.
package html2pdf
