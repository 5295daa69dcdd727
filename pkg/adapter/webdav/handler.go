package webdav

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/mvandenburgh/dandidav/pkg/dandi"
	"github.com/mvandenburgh/dandidav/pkg/dav"
	"github.com/mvandenburgh/dandidav/pkg/paths"
)

const (
	// methodPropfind is the only WebDAV extension method served.
	methodPropfind = "PROPFIND"

	davHeader   = "1, 3"
	allowHeader = "GET, HEAD, OPTIONS, PROPFIND"

	xmlContentType = "application/xml; charset=utf-8"
)

// Handler builds the complete HTTP handler: routing, CORS, compression,
// rate limiting, request logging and panic recovery.
func (a *WebDAVAdapter) Handler() http.Handler {
	router := mux.NewRouter()
	// Paths are parsed by dav.ParseTarget; cleaning them here would turn
	// invalid segments into redirects.
	router.SkipClean(true)

	router.PathPrefix("/").Methods(methodPropfind).HandlerFunc(a.handlePropfind)
	router.PathPrefix("/").Methods(http.MethodGet, http.MethodHead).HandlerFunc(a.handleGet)
	router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(a.handleOptions)
	router.MethodNotAllowedHandler = http.HandlerFunc(a.handleMethodNotAllowed)

	var h http.Handler = handlers.CompressHandler(router)
	if len(a.config.CORSOrigins) > 0 {
		h = a.corsMiddleware(h)
	}
	h = a.limiter.Middleware(h)
	h = a.requestMiddleware(h)
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(true),
	)(h)
}

// corsMiddleware answers browser preflights and tags cross-origin
// responses. Plain OPTIONS requests carry the DAV capability headers and
// go straight to handleOptions.
func (a *WebDAVAdapter) corsMiddleware(next http.Handler) http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins(a.config.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodOptions, methodPropfind}),
		handlers.AllowedHeaders([]string{"Depth", "Content-Type"}),
		handlers.ExposedHeaders([]string{"DAV", "ETag", requestIDHeader}),
	)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") == "" {
			next.ServeHTTP(w, r)
			return
		}
		cors.ServeHTTP(w, r)
	})
}

func (a *WebDAVAdapter) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("DAV", davHeader)
	w.Header().Set("Allow", allowHeader)
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusOK)
}

func (a *WebDAVAdapter) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", allowHeader)
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

func (a *WebDAVAdapter) handlePropfind(w http.ResponseWriter, r *http.Request) {
	// Depth is checked before the body and before any backend call.
	depth, err := dav.ParseDepth(r.Header.Get("Depth"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	pf, err := dav.ParsePropfind(r.Body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	items, err := a.service.Propfind(r.Context(), r.URL.Path, depth)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := dav.WriteMultistatus(&buf, items, pf); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xmlContentType)
	w.WriteHeader(http.StatusMultiStatus)
	_, _ = buf.WriteTo(w)
}

func (a *WebDAVAdapter) handleGet(w http.ResponseWriter, r *http.Request) {
	item, children, err := a.service.Lookup(r.Context(), r.URL.Path, true)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	switch {
	case item.Collection || item.Listable:
		a.serveIndex(w, r, item, children)

	case item.Content != nil:
		w.Header().Set("Content-Type", item.ContentType)
		http.ServeContent(w, r, item.Name, item.Modified, bytes.NewReader(item.Content))

	case item.Redirect != nil:
		http.Redirect(w, r, item.Redirect.String(), http.StatusTemporaryRedirect)

	default:
		requestLog(r).Warn("No download URL for %s", item.Path)
		http.Error(w, "no download URL available for this asset", http.StatusNotFound)
	}
}

// writeError maps a lookup failure to a response.
//
//   - missing resources and malformed paths: 404
//   - unsupported depth: 403 with the propfind-finite-depth condition
//   - malformed Depth header or PROPFIND body: 400
//   - asset integrity and upstream failures: 502
//   - anything else: 500
//
// Nothing is written when the client has gone away.
func (a *WebDAVAdapter) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := requestLog(r)

	if r.Context().Err() != nil && errors.Is(err, context.Canceled) {
		log.Debug("Request cancelled: %v", err)
		return
	}

	var typeErr *dandi.AssetTypeError
	var upErr *dandi.UpstreamError

	switch {
	case errors.Is(err, dav.ErrUnsupportedDepth):
		w.Header().Set("Content-Type", xmlContentType)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(dav.FiniteDepthErrorBody))

	case errors.Is(err, dav.ErrInvalidDepth), errors.Is(err, dav.ErrInvalidPropfind):
		log.Debug("Bad request: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)

	case errors.Is(err, dandi.ErrNotFound), errors.Is(err, paths.ErrInvalidPath):
		log.Debug("Not found: %v", err)
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)

	case errors.As(err, &typeErr):
		a.metrics.RecordIntegrityError()
		log.Warn("Content integrity error: %v", err)
		http.Error(w, "archive returned an invalid asset record", http.StatusBadGateway)

	case errors.As(err, &upErr):
		log.Error("Upstream failure: %v", err)
		http.Error(w, "error communicating with "+string(upErr.Backend), http.StatusBadGateway)

	default:
		log.Error("Internal error: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
