package report

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// RenderHTML converts a markdown report into a standalone HTML document with
// the viewer stylesheet inlined.
func RenderHTML(markdown string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>Similarity Report</title>" +
		"<style>" + viewerCSS + "</style></head><body>" +
		"<div class='report-wrap'><div class='report-html'>" + content.String() + "</div></div>" +
		"</body></html>", nil
}

const viewerCSS = `
body{font-family:Georgia,'Times New Roman',serif;color:#1c1917;background:#f9f7f3;margin:0;}
.report-wrap{max-width:860px;margin:0 auto;padding:2rem 1.25rem;}
.report-html h1{font-size:1.7rem;border-bottom:2px solid #92400e;padding-bottom:0.4rem;}
.report-html h2{font-size:1.2rem;margin-top:1.6rem;}
.report-html hr{border:0;border-top:1px solid #d6d3d1;margin:1.5rem 0;}
.report-html p{line-height:1.55;}
.report-html table{width:100%;border-collapse:collapse;border:1px solid #a8a29e;font-size:0.85rem;}
.report-html th,.report-html td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}
.report-html thead th{background:#f1f5f9;font-weight:700;}
`
