package httpcodec

// reasonPhrases maps the status codes this server ever emits to their
// standard reason phrase. 204 is not routinely issued; it's kept here
// so a future handler can use it without adding a new table entry.
var reasonPhrases = map[int]string{
	200: "OK",
	204: "No Content",
	400: "Bad Request",
	404: "Not Found",
	411: "Length Required",
	415: "Unsupported Media Type",
	500: "Internal Server Error",
	501: "Not Implemented",
}

// ReasonPhrase returns the standard reason phrase for code, or "Unknown"
// if the server never answers with that code.
func ReasonPhrase(code int) string {
	if r, ok := reasonPhrases[code]; ok {
		return r
	}
	return "Unknown"
}
