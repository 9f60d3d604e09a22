package httpapi

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	uaparser "github.com/ua-parser/uap-go/uaparser"
)

var uaParser = uaparser.NewFromSaved()

// gzipMiddleware compresses responses when the client advertises support,
// matching the teacher's gzipHandler but built on klauspost/compress, which
// the teacher already carries for its PCM frame codec.
func gzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Vary", "Accept-Encoding")

		gz := gzip.NewWriter(w)
		defer gz.Close()

		next.ServeHTTP(gzipResponseWriter{ResponseWriter: w, gz: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	gz *gzip.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.gz.Write(b)
}

// accessLogMiddleware logs one line per request with the parsed client
// identity, mirroring the teacher's per-request access logging but using
// ua-parser instead of an ad hoc User-Agent substring match.
func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		next.ServeHTTP(w, r)

		client := uaParser.Parse(r.Header.Get("User-Agent"))
		agent := "unknown"
		if client != nil && client.UserAgent != nil {
			agent = client.UserAgent.Family
		}
		log.Printf("httpapi: %s %s %s %s %s %v", requestID, r.Method, r.URL.Path, r.RemoteAddr, agent, time.Since(start))
	})
}
