// Package api serves the activity cards over a JSON REST API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/edgeee/activityfeed/feed"
	"github.com/edgeee/activityfeed/feed/validator"
)

// API provides the REST endpoints for the application.
type API struct {
	Logger *slog.Logger
	Feed   Feed
	Val    *validator.Validator

	once sync.Once
	mux  *http.ServeMux
}

// maxUploadMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const maxUploadMemory = 32 << 20

// userHeader carries the id of the viewer. Authentication happens upstream.
const userHeader = "X-User-ID"

const requestIDHeader = "X-Request-ID"

type loggerKey struct{}

func (a *API) setupRoutes() {
	if a.Val == nil {
		a.Val = feed.NewValidator()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /activities", a.listActivities)
	mux.HandleFunc("POST /activities", a.createActivity)
	mux.HandleFunc("GET /activities/{activityID}", a.getCard)
	mux.HandleFunc("PATCH /activities/{activityID}", a.updateActivity)
	mux.HandleFunc("DELETE /activities/{activityID}", a.deleteActivity)
	mux.HandleFunc("POST /activities/{activityID}/panels/{panel}", a.panel(feed.ActionToggle))
	mux.HandleFunc("POST /activities/{activityID}/panels/reaction-form/open", a.openReactionForm)
	mux.HandleFunc("DELETE /activities/{activityID}/panels/{panel}", a.panel(feed.ActionClose))
	mux.HandleFunc("POST /activities/{activityID}/comments", a.createComment)
	mux.HandleFunc("POST /activities/{activityID}/reactions", a.createReaction)
	mux.HandleFunc("POST /activities/{activityID}/share", a.share)

	a.mux = mux
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.once.Do(a.setupRoutes)

	id := r.Header.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, id)
	logger := a.Logger.With("request_id", id)
	logger.Info("Request received", "method", r.Method, "path", r.URL.Path)

	r = r.WithContext(context.WithValue(r.Context(), loggerKey{}, logger))
	a.mux.ServeHTTP(w, r)
}

func (a *API) log(r *http.Request) *slog.Logger {
	if l, ok := r.Context().Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return a.Logger
}

func (a *API) respond(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.log(r).Error("Could not encode JSON body", "error", err.Error())
	}
}

func (a *API) respondError(w http.ResponseWriter, r *http.Request, status int, err error, msg string) {
	type response struct {
		Error string `json:"error"`
	}
	a.log(r).Error("Error", "error", err.Error())
	a.respond(w, r, status, response{Error: msg})
}

func (a *API) respondValidation(w http.ResponseWriter, r *http.Request, errs []validator.ValidationError) {
	type response struct {
		Errors []validator.ValidationError `json:"errors"`
	}
	a.respond(w, r, http.StatusBadRequest, response{Errors: errs})
}

// respondFeedError maps an error from a feed operation to a response. msg
// is used for gateway failures.
func (a *API) respondFeedError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var verrs validator.Errors
	switch {
	case errors.As(err, &verrs):
		a.respondValidation(w, r, verrs)
	case errors.Is(err, feed.ErrNotFound):
		a.respondError(w, r, http.StatusNotFound, err, "Activity not found")
	case errors.Is(err, feed.ErrCardClosed):
		a.respondError(w, r, http.StatusConflict, err, "Card was closed")
	case errors.Is(err, feed.ErrInvalidPanelAction):
		a.respondError(w, r, http.StatusBadRequest, err, "Invalid panel action")
	default:
		a.respondError(w, r, http.StatusBadGateway, err, msg)
	}
}

func (a *API) validateBody(w http.ResponseWriter, r *http.Request, s interface{}) bool {
	if errs := a.Val.ValidateStruct(s); len(errs) > 0 {
		a.respondValidation(w, r, errs)
		return false
	}
	return true
}

func (a *API) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.respondError(w, r, http.StatusBadRequest, err, "Could not decode request body")
		return false
	}
	if err := r.Body.Close(); err != nil {
		a.respondError(w, r, http.StatusInternalServerError, err, "Could not close request body")
		return false
	}
	return a.validateBody(w, r, v)
}

// viewer returns the id of the requesting user, or responds with 400.
func (a *API) viewer(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(userHeader))
	if id == "" {
		a.respondError(w, r, http.StatusBadRequest, errors.New("missing "+userHeader), "Missing "+userHeader+" header")
		return "", false
	}
	return id, true
}

func (a *API) listActivities(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Activities []feed.Activity `json:"activities"`
	}

	acts, err := a.Feed.Activities(r.Context())
	if err != nil {
		a.respondError(w, r, http.StatusBadGateway, err, err.Error())
		return
	}
	if acts == nil {
		acts = []feed.Activity{}
	}
	a.respond(w, r, http.StatusOK, response{Activities: acts})
}

func (a *API) createActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.viewer(w, r)
	if !ok {
		return
	}

	var (
		body  activityRequest
		files []feed.Attachment
	)
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			a.respondError(w, r, http.StatusBadRequest, err, "Could not parse multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		body.Title = r.FormValue("title")
		body.Description = r.FormValue("description")
		for _, fh := range r.MultipartForm.File["files"] {
			f, err := fh.Open()
			if err != nil {
				a.respondError(w, r, http.StatusBadRequest, err, "Could not read attachment")
				return
			}
			defer f.Close()
			files = append(files, feed.Attachment{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Body:        f,
			})
		}
		if !a.validateBody(w, r, &body) {
			return
		}
	} else if !a.decodeBody(w, r, &body) {
		return
	}

	act, err := a.Feed.CreateActivity(r.Context(), feed.NewActivity{
		Title:       body.Title,
		Description: body.Description,
		UserID:      userID,
		ImgURLs:     body.ImgURLs,
		Files:       body.Files,
	}, files)
	if err != nil {
		a.respondFeedError(w, r, err, "Could not create activity")
		return
	}
	a.respond(w, r, http.StatusCreated, act)
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

func (a *API) getCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.viewer(w, r)
	if !ok {
		return
	}

	v := a.Feed.View(r.Context(), userID, r.PathValue("activityID"))
	switch q := v.Status.Activity; {
	case q.NotFound:
		a.respondError(w, r, http.StatusNotFound, errors.New(q.Error), "Activity not found")
		return
	case q.State == feed.StateError:
		a.respondError(w, r, http.StatusBadGateway, errors.New(q.Error), q.Error)
		return
	}
	a.respond(w, r, http.StatusOK, v)
}

func (a *API) updateActivity(w http.ResponseWriter, r *http.Request) {
	type response struct {
		ID string `json:"id"`
	}

	var body activityEditRequest
	if !a.decodeBody(w, r, &body) {
		return
	}

	id := r.PathValue("activityID")
	err := a.Feed.UpdateActivity(r.Context(), feed.ActivityEdit{
		ID:          id,
		Title:       body.Title,
		Description: body.Description,
	})
	if err != nil {
		a.respondFeedError(w, r, err, "Could not update activity")
		return
	}
	a.respond(w, r, http.StatusOK, response{ID: id})
}

func (a *API) deleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := a.Feed.DeleteActivity(r.Context(), r.PathValue("activityID")); err != nil {
		a.respondFeedError(w, r, err, "Could not delete activity")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) panel(action feed.PanelAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := a.viewer(w, r)
		if !ok {
			return
		}
		p, err := feed.ParsePanel(r.PathValue("panel"))
		if err != nil {
			a.respondError(w, r, http.StatusNotFound, err, fmt.Sprintf("Unknown panel %s", r.PathValue("panel")))
			return
		}
		a.applyPanel(w, r, userID, p, action)
	}
}

func (a *API) openReactionForm(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.viewer(w, r)
	if !ok {
		return
	}
	a.applyPanel(w, r, userID, feed.PanelReactionForm, feed.ActionOpen)
}

func (a *API) applyPanel(w http.ResponseWriter, r *http.Request, userID string, p feed.Panel, action feed.PanelAction) {
	v, err := a.Feed.Panel(r.Context(), userID, r.PathValue("activityID"), p, action)
	if err != nil {
		a.respondFeedError(w, r, err, "Could not update panel")
		return
	}
	a.respond(w, r, http.StatusOK, v)
}

func (a *API) createComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.viewer(w, r)
	if !ok {
		return
	}
	var body commentRequest
	if !a.decodeBody(w, r, &body) {
		return
	}

	cm, err := a.Feed.SubmitComment(r.Context(), userID, r.PathValue("activityID"), body.Content)
	if err != nil {
		a.respondFeedError(w, r, err, "Could not create comment")
		return
	}
	a.respond(w, r, http.StatusCreated, cm)
}

func (a *API) createReaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.viewer(w, r)
	if !ok {
		return
	}
	var body reactionRequest
	if !a.decodeBody(w, r, &body) {
		return
	}
	t, err := feed.ParseReactionType(body.Type)
	if err != nil {
		a.respondValidation(w, r, []validator.ValidationError{{Field: "type", Message: err.Error()}})
		return
	}

	activityID := r.PathValue("activityID")
	outcome, err := a.Feed.SubmitReaction(r.Context(), userID, activityID, t)
	if err != nil {
		a.respondFeedError(w, r, err, fmt.Sprintf("Could not react to activity %s", activityID))
		return
	}
	a.respond(w, r, http.StatusOK, reactionResponse{
		Outcome: outcome,
		Card:    a.Feed.View(r.Context(), userID, activityID),
	})
}

func (a *API) share(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.viewer(w, r)
	if !ok {
		return
	}
	res, err := a.Feed.Share(r.Context(), userID, r.PathValue("activityID"))
	if err != nil {
		a.respondFeedError(w, r, err, "Could not share activity")
		return
	}
	a.respond(w, r, http.StatusOK, res)
}
