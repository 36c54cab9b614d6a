package api

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/status-im/portfolio-proxy/interfaces"
)

// setCacheStatusHeader exposes how prices were produced (full, stale, unavailable)
func (s *Server) setCacheStatusHeader(w http.ResponseWriter, cacheStatus interfaces.CacheStatus) {
	if cacheStatus != "" {
		w.Header().Set("Cache-Status", cacheStatus.String())
	}
}

// sendJSONResponse writes data with status 200
func (s *Server) sendJSONResponse(w http.ResponseWriter, data interface{}) {
	s.sendJSONResponseWithStatus(w, nil, http.StatusOK, data)
}

// sendConditionalJSONResponse is sendJSONResponse that answers 304 when the
// client already holds the same body (If-None-Match)
func (s *Server) sendConditionalJSONResponse(w http.ResponseWriter, r *http.Request, data interface{}) {
	s.sendJSONResponseWithStatus(w, r, http.StatusOK, data)
}

// sendJSONResponseWithStatus sets Content-Type, Content-Length and an ETag
// (md5 of the body). With a request, a matching If-None-Match turns a 200 into 304.
func (s *Server) sendJSONResponseWithStatus(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Error encoding response", http.StatusInternalServerError)
		return
	}

	hash := md5.Sum(body)
	etag := `"` + hex.EncodeToString(hash[:]) + `"`
	w.Header().Set("ETag", etag)

	if r != nil && status == http.StatusOK && etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)

	if _, err := w.Write(body); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// sendJSONError writes {"error": message} with status
func sendJSONError(w http.ResponseWriter, status int, message string) {
	body, err := json.Marshal(errorResponse{Error: message})
	if err != nil {
		http.Error(w, message, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}

// queryIDs reads a comma separated list of coin ids, lowercased, blanks dropped
func queryIDs(r *http.Request, key string) []string {
	ids := []string{}
	for _, part := range strings.Split(r.URL.Query().Get(key), ",") {
		if id := strings.ToLower(strings.TrimSpace(part)); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// queryValue returns the first non-empty of the given query parameters, trimmed
func queryValue(r *http.Request, keys ...string) string {
	query := r.URL.Query()
	for _, key := range keys {
		if value := strings.TrimSpace(query.Get(key)); value != "" {
			return value
		}
	}
	return ""
}
