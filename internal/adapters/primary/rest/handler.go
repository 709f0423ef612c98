package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/jupiterclapton/socialfeed/internal/auth"
	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
	"github.com/jupiterclapton/socialfeed/pkg/api"
)

const (
	maxJSONBody = 1 << 20
	// Au-delà, le multipart déborde sur un fichier temporaire
	multipartMemory = 1 << 20
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Les messages d'erreur citent le nom JSON du champ
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type Handler struct {
	feed           ports.FeedService
	posts          ports.PostService
	identity       ports.IdentityService
	maxUploadBytes int64
}

func NewHandler(feed ports.FeedService, posts ports.PostService, identity ports.IdentityService, maxUploadBytes int64) *Handler {
	return &Handler{feed: feed, posts: posts, identity: identity, maxUploadBytes: maxUploadBytes}
}

// --- AUTH ---

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.identity.Register(r.Context(), ports.RegisterCmd{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuthResponse(res))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.identity.Login(r.Context(), ports.LoginCmd{Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResponse(res))
}

// --- FEED ---

// listPosts : GET /api/posts?page=&limit=. Valeurs absentes ou invalides -> défauts.
func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", domain.DefaultPage)
	limit := queryInt(r, "limit", domain.DefaultLimit)

	posts, err := h.feed.ListPosts(r.Context(), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostResponses(posts))
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(post))
}

// --- MUTATIONS ---

// createPost : multipart content, song, image (fichier optionnel).
func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	id := auth.ForContext(r.Context())

	if h.maxUploadBytes > 0 {
		// marge pour les champs texte et les boundaries
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			writeError(w, r, domain.NewValidationError("expected multipart/form-data"))
			return
		}
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeError(w, r, domain.ErrMediaTooLarge)
			return
		}
		writeError(w, r, domain.NewValidationError("malformed multipart body"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	cmd := ports.CreatePostCmd{
		Author:  id.Username,
		Content: r.FormValue("content"),
		Song:    r.FormValue("song"),
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		writeError(w, r, domain.NewValidationError("unreadable image part"))
		return
	default:
		defer file.Close()
		upload, err := toMediaUpload(file, header)
		if err != nil {
			writeError(w, r, err)
			return
		}
		cmd.Media = upload
	}

	post, err := h.posts.CreatePost(r.Context(), cmd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPostResponse(post))
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	id := auth.ForContext(r.Context())

	var req api.CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	postID := chi.URLParam(r, "id")
	comments, err := h.posts.AddComment(r.Context(), postID, id.Username, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.CommentsResponse{PostID: postID, Comments: toCommentResponses(comments)})
}

// setLike : PUT {liked: bool}. POST et DELETE sont des raccourcis.
func (h *Handler) setLike(w http.ResponseWriter, r *http.Request) {
	var req api.LikeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.applyLike(w, r, *req.Liked)
}

func (h *Handler) like(w http.ResponseWriter, r *http.Request)   { h.applyLike(w, r, true) }
func (h *Handler) unlike(w http.ResponseWriter, r *http.Request) { h.applyLike(w, r, false) }

func (h *Handler) applyLike(w http.ResponseWriter, r *http.Request, liked bool) {
	id := auth.ForContext(r.Context())
	state, err := h.posts.ToggleLike(r.Context(), chi.URLParam(r, "id"), id.Username, liked)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.LikeResponse{
		PostID:    state.PostID,
		Liked:     state.Liked,
		Likes:     nonNil(state.Likes),
		LikeCount: state.Count(),
	})
}

// --- HELPERS ---

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("malformed JSON body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return domain.NewValidationError(fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
		return domain.NewValidationError(err.Error())
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

// toMediaUpload détecte le type réel du fichier quand le client ne le donne pas.
func toMediaUpload(file multipart.File, header *multipart.FileHeader) (*ports.MediaUpload, error) {
	ct := header.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		sniff := make([]byte, 512)
		n, err := io.ReadFull(file, sniff)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return nil, domain.NewValidationError("unreadable image part")
		}
		ct = http.DetectContentType(sniff[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind upload: %w", err)
		}
	}
	return &ports.MediaUpload{
		Filename:    header.Filename,
		ContentType: ct,
		Size:        header.Size,
		Body:        file,
	}, nil
}
