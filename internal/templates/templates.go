// Package templates holds the static HTML templates the handler chain
// renders, embedded at build time rather than read from disk at
// request time.
package templates

import (
	"bytes"
	"embed"
	"html/template"
)

//go:embed assets/*.html
var assets embed.FS

var parsed = template.Must(template.ParseFS(assets, "assets/*.html"))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := parsed.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Welcome renders the GET / landing page.
func Welcome() (string, error) { return render("welcome.html", nil) }

// Status renders the fallback status-code page.
func Status(code int, reason string) (string, error) {
	return render("status.html", struct {
		Code   int
		Reason string
	}{code, reason})
}

// ListingSection is one server's section of a listing page.
type ListingSection struct {
	Server string
	Links  []string
}

// Listing renders the per-type listing page.
func Listing(typ string, sections []ListingSection) (string, error) {
	return render("listing.html", struct {
		Type     string
		Sections []ListingSection
	}{typ, sections})
}

// Created renders the small confirmation page a successful POST
// answers with.
func Created(link string) (string, error) {
	return render("created.html", struct{ Link string }{link})
}

// Deleted renders the confirmation page a successful DELETE answers
// with.
func Deleted(id string) (string, error) {
	return render("deleted.html", struct{ UUID string }{id})
}

// XSLTError renders the error page for a validation/transform failure.
func XSLTError(reason string) (string, error) {
	return render("xslterror.html", struct{ Reason string }{reason})
}
