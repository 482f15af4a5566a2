// Package xslt implements a transformation pipeline: validate an XML
// document against its declared XSD, then apply an XSLT stylesheet to
// it. All parsing disables external DTD/entity resolution, which both
// underlying libxml2 bindings do by default when fed an in-memory
// document rather than a fetchable URL.
package xslt

import (
	"fmt"
	"sync"

	"github.com/hybridserver/hybridserver/internal/apperr"
	"github.com/wamuir/go-xslt"
	xsdvalidate "github.com/wamuir/go-xsd-validate"
)

// Result is the outcome of a successful transform: the produced bytes
// and the MIME type the stylesheet declares its output as (typically
// application/xml or text/html).
type Result struct {
	MIME    string
	Content string
}

var initOnce sync.Once
var initErr error

func ensureInit() error {
	initOnce.Do(func() {
		initErr = xsdvalidate.Init()
	})
	return initErr
}

// Transform validates xmlDoc against xsdDoc and, if valid, applies
// xsltDoc to it. A validation or transform failure is returned as a
// *apperr.Error with Kind apperr.KindValidation carrying the
// underlying library's message.
func Transform(xmlDoc, xsdDoc, xsltDoc string) (Result, error) {
	if err := ensureInit(); err != nil {
		return Result{}, apperr.New(apperr.KindBackend, "xslt init", err)
	}

	schema, err := xsdvalidate.NewXsdHandlerMem([]byte(xsdDoc), xsdvalidate.ParsErrDefault)
	if err != nil {
		return Result{}, apperr.New(apperr.KindValidation, "xslt", fmt.Errorf("invalid XSD: %w", err))
	}
	defer schema.Free()

	if err := schema.ValidateMem([]byte(xmlDoc), xsdvalidate.ValidErrDefault); err != nil {
		return Result{}, apperr.New(apperr.KindValidation, "xslt", fmt.Errorf("XML does not validate against XSD: %w", err))
	}

	style, err := xslt.NewStylesheet([]byte(xsltDoc))
	if err != nil {
		return Result{}, apperr.New(apperr.KindValidation, "xslt", fmt.Errorf("invalid XSLT stylesheet: %w", err))
	}
	defer style.Close()

	out, err := style.Transform([]byte(xmlDoc), xslt.StylesheetOptions{})
	if err != nil {
		return Result{}, apperr.New(apperr.KindValidation, "xslt", fmt.Errorf("transform failed: %w", err))
	}

	mime := style.MediaType()
	if mime == "" {
		mime = "application/xml"
	}
	return Result{MIME: mime, Content: string(out)}, nil
}
