// Package devserver emulates the community API in memory so the client can
// be developed and integration-tested without a deployment. Endpoint shapes
// follow the production contract exactly; everything else is a fixture.
package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/venueboard/internal/platform/api"
	"github.com/example/venueboard/internal/platform/auth"
	"github.com/example/venueboard/internal/platform/httpserver"
	"github.com/example/venueboard/internal/remote"
)

type Server struct {
	Log      *zap.Logger
	Store    *Store
	Verifier auth.Verifier
}

func New(log *zap.Logger, jwtSecret string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Log:      log,
		Store:    NewStore(),
		Verifier: auth.Verifier{Secret: []byte(jwtSecret)},
	}
}

// MintToken issues a dev token for a seeded member.
func (s *Server) MintToken(memberID int64, nickname string) (string, error) {
	return s.Verifier.Mint(auth.Identity{MemberID: memberID, Nickname: nickname}, 24*time.Hour)
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	httpserver.SetupRouter(r)

	r.Post("/dev/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireMember(s.Verifier))

		r.Get("/posts", s.handleListPosts)
		r.Get("/events", s.handleListEvents)
		r.Get("/members/scraps", s.handleListScraps)
		r.Get("/comments", s.handleListComments)
		r.Post("/comments", s.handleCreateComment)
		r.Delete("/comments/{id}", s.handleDeleteComment)

		for _, res := range []string{"posts", "events", "comments"} {
			r.Post("/"+res+"/{id}/like", s.handleLike(res, true))
			r.Delete("/"+res+"/{id}/like", s.handleLike(res, false))
		}
		for _, res := range []string{"posts", "events"} {
			r.Post("/"+res+"/{id}/scrap", s.handleScrap(res, true))
			r.Delete("/"+res+"/{id}/scrap", s.handleScrap(res, false))
		}

		r.Post("/members/follow", s.handleFollow(true))
		r.Delete("/members/follow", s.handleFollow(false))
	})
	return r
}

type loginRequest struct {
	Nickname string `json:"nickname"`
}

type loginResponse struct {
	Token    string `json:"token"`
	MemberID int64  `json:"memberId"`
}

// handleLogin looks up or creates a member by nickname and returns a token.
// Dev convenience only; real token acquisition lives outside this repo.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil || strings.TrimSpace(req.Nickname) == "" {
		api.BadRequest(w, "INVALID_JSON", "nickname is required", reqID(r), nil)
		return
	}
	id, ok := s.Store.MemberByNickname(req.Nickname)
	if !ok {
		id = s.Store.AddMember(req.Nickname)
	}
	token, err := s.MintToken(id, req.Nickname)
	if err != nil {
		api.Internal(w, reqID(r))
		return
	}
	api.WriteJSON(w, http.StatusOK, loginResponse{Token: token, MemberID: id})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	viewer := viewerID(r)
	page, size := pageParams(r)
	posts, last := s.Store.ListPosts(viewer, strings.TrimSpace(r.URL.Query().Get("board")), page, size)
	if posts == nil {
		posts = []remote.Post{}
	}
	api.WriteJSON(w, http.StatusOK, remote.Page[remote.Post]{Content: posts, Last: last})
}

func (s *Server) handleListScraps(w http.ResponseWriter, r *http.Request) {
	viewer := viewerID(r)
	page, size := pageParams(r)
	posts, last := s.Store.ListScraps(viewer, page, size)
	if posts == nil {
		posts = []remote.Post{}
	}
	api.WriteJSON(w, http.StatusOK, remote.Page[remote.Post]{Content: posts, Last: last})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	viewer := viewerID(r)
	page, size := pageParams(r)
	events, last := s.Store.ListEvents(viewer, page, size)
	if events == nil {
		events = []remote.Event{}
	}
	api.WriteJSON(w, http.StatusOK, remote.Page[remote.Event]{Content: events, Last: last})
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	viewer := viewerID(r)
	postID, err := strconv.ParseInt(r.URL.Query().Get("postId"), 10, 64)
	if err != nil || postID <= 0 {
		api.BadRequest(w, "MISSING_ID", "postId is required", reqID(r), nil)
		return
	}
	page, size := pageParams(r)
	comments, last, err := s.Store.ListComments(viewer, postID, page, size)
	if err != nil {
		api.NotFound(w, "NOT_FOUND", "post not found", reqID(r))
		return
	}
	api.WriteJSON(w, http.StatusOK, remote.CommentPage{Content: comments, Last: last})
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	viewer := viewerID(r)
	var req remote.CreateCommentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", reqID(r), nil)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		api.BadRequest(w, "EMPTY_CONTENT", "content must not be empty", reqID(r), nil)
		return
	}
	created, err := s.Store.CreateComment(viewer, req)
	if err != nil {
		api.NotFound(w, "NOT_FOUND", "post or parent comment not found", reqID(r))
		return
	}
	api.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	viewer := viewerID(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		api.BadRequest(w, "MISSING_ID", "comment id is required", reqID(r), nil)
		return
	}
	switch err := s.Store.DeleteComment(viewer, id); {
	case errors.Is(err, ErrNotFound):
		api.NotFound(w, "NOT_FOUND", "comment not found", reqID(r))
	case errors.Is(err, ErrForbidden):
		api.Forbidden(w, "FORBIDDEN", "not the author", reqID(r))
	case err != nil:
		api.Internal(w, reqID(r))
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

type toggleResponse struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

func (s *Server) handleLike(resource string, on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			api.BadRequest(w, "MISSING_ID", "id is required", reqID(r), nil)
			return
		}
		liked, likes, err := s.Store.ToggleLike(resource, id, viewerID(r), on)
		if err != nil {
			api.NotFound(w, "NOT_FOUND", resource+" not found", reqID(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, toggleResponse{Liked: liked, Likes: likes})
	}
}

func (s *Server) handleScrap(resource string, on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			api.BadRequest(w, "MISSING_ID", "id is required", reqID(r), nil)
			return
		}
		scrapped, scraps, err := s.Store.ToggleScrap(resource, id, viewerID(r), on)
		if err != nil {
			api.NotFound(w, "NOT_FOUND", resource+" not found", reqID(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, toggleResponse{Liked: scrapped, Likes: scraps})
	}
}

type followRequest struct {
	FollowedID int64 `json:"followedId"`
}

func (s *Server) handleFollow(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req followRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil || req.FollowedID <= 0 {
			api.BadRequest(w, "INVALID_JSON", "followedId is required", reqID(r), nil)
			return
		}
		if err := s.Store.SetFollow(viewerID(r), req.FollowedID, on); err != nil {
			api.NotFound(w, "NOT_FOUND", "member not found", reqID(r))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func viewerID(r *http.Request) int64 {
	id, _ := auth.IdentityFromContext(r.Context())
	return id.MemberID
}

func reqID(r *http.Request) string {
	return httpserver.RequestIDFromContext(r.Context())
}

func pageParams(r *http.Request) (int, int) {
	page, size := 1, 20
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if sz, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && sz > 0 && sz <= 100 {
		size = sz
	}
	return page, size
}
