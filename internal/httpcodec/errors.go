package httpcodec

import "github.com/hybridserver/hybridserver/internal/apperr"

func newParseError(format string, args ...any) error {
	return apperr.Newf(apperr.KindParse, "httpcodec", format, args...)
}

func newUnsupportedHeader(format string, args ...any) error {
	return apperr.Newf(apperr.KindUnsupportedHeader, "httpcodec", format, args...)
}

func newUnsupportedEncoding(format string, args ...any) error {
	return apperr.Newf(apperr.KindUnsupportedEncoding, "httpcodec", format, args...)
}

func newMissingLength(format string, args ...any) error {
	return apperr.Newf(apperr.KindMissingLength, "httpcodec", format, args...)
}
