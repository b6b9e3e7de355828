package event_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ms-events/internal/events/service"
	"ms-events/internal/flash"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/web"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
)

// EventService is the part of *service.EventService the handlers use.
type EventService interface {
	List(ctx context.Context) ([]models.Event, error)
	Get(ctx context.Context, id int64) (*models.Event, error)
	Create(ctx context.Context, form service.EventForm) (*models.Event, error)
	Update(ctx context.Context, id int64, form service.EventForm) (*models.Event, error)
	Delete(ctx context.Context, id int64) error
}

const (
	msgCreated = "Event created successfully!"
	msgUpdated = "Event updated successfully!"
	msgDeleted = "Event deleted successfully!"
)

type Handler struct {
	EventService EventService
	Renderer     *web.Renderer
	Flash        flash.Store
	Logger       *logger.Logger
}

func NewHandler(eventService EventService, renderer *web.Renderer, flashStore flash.Store, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Handler{
		EventService: eventService,
		Renderer:     renderer,
		Flash:        flashStore,
		Logger:       log,
	}
}

// RegisterRoutes registers the event pages on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListEvents)
	r.Get("/create", h.CreateForm)
	r.Post("/create", h.CreateEvent)
	r.Get("/edit/{id}", h.EditForm)
	r.Post("/edit/{id}", h.UpdateEvent)
	r.Post("/delete/{id}", h.DeleteEvent)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.renderError(w, r, http.StatusNotFound, "The page you asked for does not exist.")
	})
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.EventService.List(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, web.PageIndex, web.PageData{
		Title:  "Events",
		Events: events,
	})
}

func (h *Handler) CreateForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, 0, service.EventForm{}, nil)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	form, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	_, err := h.EventService.Create(r.Context(), form)
	if err != nil {
		h.formError(w, r, 0, form, err)
		return
	}

	h.redirectWithFlash(w, r, msgCreated)
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	event, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.renderForm(w, r, http.StatusOK, event.ID, service.FormFromEvent(*event), nil)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := h.lookup(w, r)
	if !ok {
		return
	}

	form, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	if _, err := h.EventService.Update(r.Context(), event.ID, form); err != nil {
		h.formError(w, r, event.ID, form, err)
		return
	}

	h.redirectWithFlash(w, r, msgUpdated)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := h.EventService.Delete(r.Context(), event.ID); err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			h.notFound(w, r, event.ID)
			return
		}
		h.serverError(w, r, err)
		return
	}

	h.redirectWithFlash(w, r, msgDeleted)
}

// lookup resolves {id} to a stored event, answering 404 for unknown or
// non-numeric ids.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*models.Event, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.renderError(w, r, http.StatusNotFound, "The page you asked for does not exist.")
		return nil, false
	}

	event, err := h.EventService.Get(r.Context(), id)
	if errors.Is(err, service.ErrEventNotFound) {
		h.notFound(w, r, id)
		return nil, false
	}
	if err != nil {
		h.serverError(w, r, err)
		return nil, false
	}
	return event, true
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (service.EventForm, bool) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The submitted form could not be read.")
		return service.EventForm{}, false
	}
	return service.FormFromValues(r.PostForm), true
}

// formError re-renders the form with field messages for validation
// failures and falls back to the error page for anything else.
func (h *Handler) formError(w http.ResponseWriter, r *http.Request, id int64, form service.EventForm, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		h.Logger.Debug("API", fmt.Sprintf("Rejected event form: %v", verr))
		h.renderForm(w, r, http.StatusUnprocessableEntity, id, form, verr.Fields)
	case errors.Is(err, service.ErrEventNotFound):
		h.notFound(w, r, id)
	default:
		h.serverError(w, r, err)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, message string) {
	if err := h.Flash.Add(w, r, message); err != nil {
		h.Logger.Warn("FLASH", fmt.Sprintf("Failed to queue flash message: %v", err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, id int64, form service.EventForm, errs map[string]string) {
	data := web.PageData{
		Title:   "Register event",
		Action:  "/create",
		EventID: id,
		Form:    form,
		Errors:  errs,
	}
	if id != 0 {
		data.Title = "Edit event"
		data.Action = fmt.Sprintf("/edit/%d", id)
	}
	h.render(w, r, status, web.PageForm, data)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data web.PageData) {
	messages, err := h.Flash.Pop(w, r)
	if err != nil {
		h.Logger.Warn("FLASH", fmt.Sprintf("Failed to read flash messages: %v", err))
	}
	data.Flashes = messages
	data.CSRFField = csrf.TemplateField(r)

	if err := h.Renderer.Render(w, status, page, data); err != nil {
		h.Logger.Error("TEMPLATE", err.Error())
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, id int64) {
	h.renderError(w, r, http.StatusNotFound, fmt.Sprintf("Event %d does not exist.", id))
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.Logger.Error("API", fmt.Sprintf("%s %s failed: %v", r.Method, r.URL.Path, err))
	h.renderError(w, r, http.StatusInternalServerError, "Something went wrong while handling your request.")
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	data := web.PageData{
		Title:      http.StatusText(status),
		Status:     status,
		StatusText: http.StatusText(status),
		Message:    message,
	}
	if err := h.Renderer.Render(w, status, web.PageError, data); err != nil {
		h.Logger.Error("TEMPLATE", err.Error())
		http.Error(w, http.StatusText(status), status)
	}
}
