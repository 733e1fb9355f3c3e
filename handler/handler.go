// Package handler provides the HTTP handlers for the friends server.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stevemurr/friends-server/friends"
	"github.com/stevemurr/friends-server/log"
)

// FriendService is the set of friend operations the handlers need.
type FriendService interface {
	Get(id int) (friends.Profile, error)
	List() ([]friends.Entry, error)
	Add(n friends.NewFriend) (friends.Friend, error)
	Update(id int, n friends.NewFriend) (bool, error)
	Delete(id int) error
}

// Options tunes the HTTP surface.
type Options struct {
	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string
	// MaxUploadBytes caps request bodies on POST and PUT.
	MaxUploadBytes int64
}

const defaultMaxUploadBytes = 50 << 20

// Handler holds the server dependencies and registers routes.
type Handler struct {
	friends   FriendService
	router    chi.Router
	maxUpload int64
}

// New creates a Handler and wires up all routes.
func New(svc FriendService, opts Options) *Handler {
	h := &Handler{
		friends:   svc,
		router:    chi.NewRouter(),
		maxUpload: opts.MaxUploadBytes,
	}
	if h.maxUpload <= 0 {
		h.maxUpload = defaultMaxUploadBytes
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	h.router.Use(RequestID)
	h.router.Use(Recovery)
	h.router.Use(Logger)
	h.router.Use(CORS(opts.AllowedOrigins))
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	r := h.router

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health / status
	r.Get("/", h.root)
	r.Get("/health", h.health)

	r.Route("/friends", func(r chi.Router) {
		r.Get("/", h.listFriends)
		r.Post("/", h.addFriend)
		r.Get("/{id}", h.getFriend)
		r.Put("/{id}", h.updateFriend)
		r.Delete("/{id}", h.deleteFriend)
	})

	// API documentation
	r.Get("/docs", h.docs)
	r.Get("/docs/openapi.json", h.openAPI)
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "friends-server",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ---------- friends ----------

func (h *Handler) getFriend(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	profile, err := h.friends.Get(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: profile})
}

func (h *Handler) listFriends(w http.ResponseWriter, r *http.Request) {
	entries, err := h.friends.List()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: entries})
}

func (h *Handler) addFriend(w http.ResponseWriter, r *http.Request) {
	n, ok := h.readFriend(w, r)
	if !ok {
		return
	}
	created, err := h.friends.Add(n)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{Result: resultSuccess, ID: created.ID})
}

func (h *Handler) updateFriend(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	n, ok := h.readFriend(w, r)
	if !ok {
		return
	}
	if _, err := h.friends.Update(id, n); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{Result: resultSuccess})
}

// deleteFriend always succeeds for ids that name nothing, including ids that
// are not integers.
func (h *Handler) deleteFriend(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		log.Debugf("delete of non-integer id %q ignored", chi.URLParam(r, "id"))
		writeJSON(w, http.StatusOK, resultResponse{Result: resultSuccess})
		return
	}
	if err := h.friends.Delete(id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{Result: resultSuccess})
}
