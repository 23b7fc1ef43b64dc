// CLAUDE:SUMMARY HTTP surface: chi routes under /api/dommark/v1 for
// sessions, annotations, restore, picks, digest and service stats.
package annot

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/dommark/dom"
	"github.com/hazyhaar/dommark/pagekey"
	"github.com/hazyhaar/dommark/picker"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// errStatus maps service errors onto HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNoSnapshot):
		return 404
	case errors.Is(err, ErrEmptySelection),
		errors.Is(err, ErrQuoteNotFound),
		errors.Is(err, dom.ErrBadPath),
		errors.Is(err, dom.ErrBounds),
		errors.Is(err, dom.ErrInverted),
		errors.Is(err, pagekey.ErrBadURL):
		return 400
	case errors.Is(err, ErrNoBridge), errors.Is(err, ErrNoLayout):
		return 409
	default:
		return 500
	}
}

// sessionParam resolves the {sid} route parameter to a session and
// writes the error response itself on a miss.
func (s *Service) sessionParam(w http.ResponseWriter, r *http.Request) *Session {
	sess, err := s.Session(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, errStatus(err), err)
		return nil
	}
	return sess
}

// RegisterHTTP mounts the service API on the router.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Route("/api/dommark/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, 200, map[string]string{"status": "ok"})
		})

		r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			stats, err := s.Stats(r.Context())
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, stats)
		})

		r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
			events, err := s.Events(r.Context(), r.URL.Query().Get("page"), queryInt(r, "limit", 50))
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, events)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, 200, s.Sessions())
			})

			r.Post("/", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					URL  string `json:"url"`
					HTML string `json:"html"`
					Mode string `json:"mode"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, 400, err)
					return
				}
				sess, err := s.openByMode(r.Context(), req.URL, req.HTML, req.Mode)
				if err != nil {
					writeError(w, errStatus(err), err)
					return
				}
				writeJSON(w, 201, sess.Info())
			})

			r.Route("/{sid}", func(r chi.Router) {
				r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
					if err := s.CloseSession(chi.URLParam(r, "sid")); err != nil {
						writeError(w, errStatus(err), err)
						return
					}
					writeJSON(w, 200, map[string]string{"status": "closed"})
				})

				r.Get("/html", func(w http.ResponseWriter, r *http.Request) {
					sess := s.sessionParam(w, r)
					if sess == nil {
						return
					}
					doc := s.HTML(sess)
					if r.URL.Query().Get("sanitized") == "1" {
						doc = string(s.exporter.Sanitize([]byte(doc)))
					}
					w.Header().Set("Content-Type", "text/html; charset=utf-8")
					io.WriteString(w, doc)
				})

				r.Get("/digest", func(w http.ResponseWriter, r *http.Request) {
					sess := s.sessionParam(w, r)
					if sess == nil {
						return
					}
					md, err := s.Digest(r.Context(), sess)
					if err != nil {
						writeError(w, 500, err)
						return
					}
					w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
					io.WriteString(w, md)
				})

				r.Post("/restore", func(w http.ResponseWriter, r *http.Request) {
					sess := s.sessionParam(w, r)
					if sess == nil {
						return
					}
					report, err := s.Restore(r.Context(), sess)
					if err != nil {
						writeError(w, 500, err)
						return
					}
					writeJSON(w, 200, report)
				})

				r.Post("/clear", func(w http.ResponseWriter, r *http.Request) {
					sess := s.sessionParam(w, r)
					if sess == nil {
						return
					}
					writeJSON(w, 200, map[string]int{"cleared": s.Clear(r.Context(), sess)})
				})

				r.Post("/layout", func(w http.ResponseWriter, r *http.Request) {
					sess := s.sessionParam(w, r)
					if sess == nil {
						return
					}
					var req struct {
						Viewport picker.Rect `json:"viewport"`
						Boxes    []LayoutBox `json:"boxes"`
					}
					if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
						writeError(w, 400, err)
						return
					}
					writeJSON(w, 200, map[string]int{"boxes": sess.LoadLayout(req.Viewport, req.Boxes)})
				})

				r.Route("/annotations", func(r chi.Router) {
					r.Get("/", func(w http.ResponseWriter, r *http.Request) {
						sess := s.sessionParam(w, r)
						if sess == nil {
							return
						}
						anns, err := s.List(r.Context(), sess)
						if err != nil {
							writeError(w, 500, err)
							return
						}
						writeJSON(w, 200, anns)
					})

					r.Post("/", func(w http.ResponseWriter, r *http.Request) {
						sess := s.sessionParam(w, r)
						if sess == nil {
							return
						}
						var req struct {
							Selection
							Quote string `json:"quote"`
						}
						if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
							writeError(w, 400, err)
							return
						}
						var res *AnnotateResult
						var err error
						if req.Quote != "" {
							res, err = s.AnnotateQuote(r.Context(), sess, req.Quote, req.Kind, req.Note)
						} else {
							res, err = s.Annotate(r.Context(), sess, req.Selection)
						}
						if err != nil {
							writeError(w, errStatus(err), err)
							return
						}
						writeJSON(w, 201, res)
					})

					r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
						sess := s.sessionParam(w, r)
						if sess == nil {
							return
						}
						ann, err := s.Get(r.Context(), sess, chi.URLParam(r, "id"))
						if err != nil {
							writeError(w, errStatus(err), err)
							return
						}
						writeJSON(w, 200, ann)
					})

					r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
						sess := s.sessionParam(w, r)
						if sess == nil {
							return
						}
						if err := s.Remove(r.Context(), sess, chi.URLParam(r, "id")); err != nil {
							writeError(w, errStatus(err), err)
							return
						}
						writeJSON(w, 200, map[string]bool{"removed": true})
					})
				})

				r.Route("/picks", func(r chi.Router) {
					r.Get("/", func(w http.ResponseWriter, r *http.Request) {
						sess := s.sessionParam(w, r)
						if sess == nil {
							return
						}
						picks, err := s.PicksFor(r.Context(), sess.Key)
						if err != nil {
							writeError(w, 500, err)
							return
						}
						writeJSON(w, 200, picks)
					})

					r.Post("/point", func(w http.ResponseWriter, r *http.Request) {
						sess := s.sessionParam(w, r)
						if sess == nil {
							return
						}
						var sel picker.SelectionRect
						if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
							writeError(w, 400, err)
							return
						}
						res, err := s.PickPoint(r.Context(), sess, sel)
						if err != nil {
							writeError(w, errStatus(err), err)
							return
						}
						writeJSON(w, 200, res)
					})

					r.Post("/rect", func(w http.ResponseWriter, r *http.Request) {
						sess := s.sessionParam(w, r)
						if sess == nil {
							return
						}
						var sel picker.SelectionRect
						if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
							writeError(w, 400, err)
							return
						}
						res, err := s.PickRect(r.Context(), sess, sel)
						if err != nil {
							writeError(w, errStatus(err), err)
							return
						}
						writeJSON(w, 200, res)
					})

					r.Post("/hover", func(w http.ResponseWriter, r *http.Request) {
						sess := s.sessionParam(w, r)
						if sess == nil {
							return
						}
						var req struct {
							X float64 `json:"x"`
							Y float64 `json:"y"`
						}
						if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
							writeError(w, 400, err)
							return
						}
						res, err := s.PickHover(sess, req.X, req.Y)
						if err != nil {
							writeError(w, errStatus(err), err)
							return
						}
						writeJSON(w, 200, res)
					})
				})
			})
		})
	})
}
