// Package httpcodec is the hand-written HTTP/1.1 parser and response
// writer at the heart of the server. It never wraps net/http: every
// failure mode is explicit and mapped to a specific status code,
// reachable from code written here rather than borrowed.
package httpcodec

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Request is the immutable parsed record of one inbound HTTP/1.1 request.
type Request struct {
	Method              string
	ResourceChain       string // raw request-target, as received
	ResourceName        string // first path segment, no leading '/'
	ResourcePath        []string
	ResourceParameters  *Params
	HeaderParameters    *Headers
	Version             string
	ContentLength       int
	BodyBytes           []byte
	TextBody            string
	HasTextBody         bool
}

var methodRE = regexp.MustCompile(`^HTTP/1\.\d+$`)

var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"HEAD": true, "OPTIONS": true, "TRACE": true,
}

const maxContentLength = 1<<31 - 1 // non-negative 32-bit integer

// ParseRequest reads exactly one HTTP/1.1 request from r and returns its
// parsed form, or a classified error (see package apperr) mapping to
// a specific status code.
func ParseRequest(r *bufio.Reader) (*Request, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, newParseError("end of stream before request line")
	}

	fields := strings.Split(line, " ")
	if len(fields) != 3 {
		return nil, newParseError("request line %q is not exactly three space-separated fields", line)
	}
	method, target, version := fields[0], fields[1], fields[2]

	if !knownMethods[method] {
		return nil, newParseError("unknown method %q", method)
	}
	if !ValidRequestTarget(method, target) {
		return nil, newParseError("invalid request-target %q", target)
	}
	if !methodRE.MatchString(version) {
		return nil, newParseError("invalid HTTP version %q", version)
	}

	headers := NewHeaders()
	for {
		hline, err := readLine(r)
		if err != nil {
			return nil, newParseError("end of stream while reading headers")
		}
		if hline == "" {
			break
		}
		sep := strings.Index(hline, ": ")
		if sep < 0 {
			return nil, newParseError("header line %q has no ': ' separator", hline)
		}
		headers.Set(hline[:sep], hline[sep+2:])
	}

	if headers.Has("Transfer-Encoding") {
		return nil, newUnsupportedHeader("Transfer-Encoding is not supported")
	}
	if ct, ok := headers.Get("Content-Type"); ok && strings.HasPrefix(strings.ToLower(ct), "multipart/byteranges") {
		return nil, newParseError("Content-Type: multipart/byteranges is not supported")
	}

	contentEncoding := ""
	if ce, ok := headers.Get("Content-Encoding"); ok {
		contentEncoding = ce
		if !strings.EqualFold(ce, "identity") && !isKnownCharset(ce) {
			return nil, newUnsupportedEncoding("unsupported Content-Encoding %q", ce)
		}
	}

	contentLength := 0
	clHeader, hasCL := headers.Get("Content-Length")
	if hasCL {
		n, err := strconv.Atoi(strings.TrimSpace(clHeader))
		if err != nil || n < 0 || n > maxContentLength {
			return nil, newParseError("invalid Content-Length %q", clHeader)
		}
		contentLength = n
	} else if headers.Has("Content-Type") {
		// A body was clearly intended (a media type was declared) but
		// there is no way to know how many bytes to read.
		return nil, newMissingLength("Content-Type present without Content-Length")
	}

	body := make([]byte, contentLength)
	if contentLength > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, newParseError("body shorter than declared Content-Length")
		}
	}

	req := &Request{
		Method:             method,
		ResourceChain:      target,
		HeaderParameters:   headers,
		Version:            version,
		ContentLength:      contentLength,
		BodyBytes:          body,
		ResourceParameters: NewParams(),
	}

	if target != "*" {
		path, query := SplitResourceChain(target)
		req.ResourceName = ResourceName(path)
		req.ResourcePath = ResourcePath(path)
		if err := ParseQuery(query, req.ResourceParameters); err != nil {
			return nil, err
		}
	}

	contentType, _ := headers.Get("Content-Type")
	if isTextual(contentType) && contentLength > 0 {
		text, err := decodeBody(body, contentType, contentEncoding)
		if err != nil {
			return nil, err
		}
		req.TextBody = text
		req.HasTextBody = true

		if (method == "POST" || method == "PUT") && strings.HasPrefix(strings.ToLower(contentType), "application/x-www-form-urlencoded") {
			if err := ParseFormBody(text, req.ResourceParameters); err != nil {
				return nil, err
			}
		}
	}

	return req, nil
}

// readLine reads up to the next line terminator, accepting both CRLF
// and a bare LF, and returns the line with the terminator stripped. io.EOF
// with no bytes read is reported as an error so callers can distinguish
// "stream ended exactly here" from "line present but empty".
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimSuffix(line, "\r"), nil
		}
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

func isTextual(contentType string) bool {
	if contentType == "" {
		return true // default, absent means no declared body type to exclude
	}
	lower := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(lower, "text/"),
		strings.HasPrefix(lower, "application/xml"),
		strings.HasPrefix(lower, "application/xslt+xml"),
		strings.HasPrefix(lower, "application/x-www-form-urlencoded"):
		return true
	default:
		return false
	}
}

var knownCharsets = map[string]bool{
	"utf-8":      true,
	"us-ascii":   true,
	"iso-8859-1": true,
}

func isKnownCharset(name string) bool {
	return knownCharsets[strings.ToLower(strings.TrimSpace(name))]
}

// decodeBody best-effort decodes raw using the charset named on
// Content-Type, falling back to Content-Encoding parsed as a charset
// name, falling back to ISO-8859-1.
func decodeBody(raw []byte, contentType, contentEncoding string) (string, error) {
	charset := charsetFromContentType(contentType)
	if charset == "" && !strings.EqualFold(contentEncoding, "identity") {
		charset = contentEncoding
	}
	if charset == "" {
		charset = "iso-8859-1"
	}
	if !isKnownCharset(charset) {
		return "", newUnsupportedEncoding("unsupported charset %q", charset)
	}
	switch strings.ToLower(charset) {
	case "utf-8":
		if !utf8.Valid(raw) {
			return "", newUnsupportedEncoding("body is not valid UTF-8")
		}
		return string(raw), nil
	case "us-ascii":
		for _, b := range raw {
			if b > 127 {
				return "", newUnsupportedEncoding("body is not valid US-ASCII")
			}
		}
		return string(raw), nil
	case "iso-8859-1":
		return decodeLatin1(raw), nil
	default:
		return "", newUnsupportedEncoding("unsupported charset %q", charset)
	}
}

func charsetFromContentType(contentType string) string {
	for _, part := range strings.Split(contentType, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(strings.ToLower(part), "charset=") {
			return strings.Trim(part[len("charset="):], `"`)
		}
	}
	return ""
}

func decodeLatin1(raw []byte) string {
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

