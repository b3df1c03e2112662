package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/service"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// PropertyHandler serves listings. Create and update accept either JSON or
// multipart/form-data with an optional "image" file.
type PropertyHandler struct {
	properties *service.PropertyService
	// maxUpload bounds a multipart request body.
	maxUpload int64
	responder
}

func NewPropertyHandler(properties *service.PropertyService, maxUpload int64, logger *slog.Logger, debug bool) *PropertyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PropertyHandler{
		properties: properties,
		maxUpload:  maxUpload,
		responder:  responder{logger: logger, debug: debug},
	}
}

type PropertiesResponse struct {
	Properties []*domain.Property `json:"properties"`
}

type PropertyResponse struct {
	Message  string           `json:"message,omitempty"`
	Property *domain.Property `json:"property"`
}

// List handles GET /api/properties
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	props, err := h.properties.List(r.Context(), service.PropertyQuery{
		Type:     q.Get("type"),
		Status:   q.Get("status"),
		MinPrice: q.Get("minPrice"),
		MaxPrice: q.Get("maxPrice"),
		Location: q.Get("location"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, PropertiesResponse{Properties: props})
}

// Get handles GET /api/properties/{id}
func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	prop, err := h.properties.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, PropertyResponse{Property: prop})
}

// ListByOwner handles GET /api/properties/owner/{ownerId}
func (h *PropertyHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	props, err := h.properties.ListByOwner(r.Context(), principal(r), r.PathValue("ownerId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, PropertiesResponse{Properties: props})
}

// Create handles POST /api/properties
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var (
		in    service.CreatePropertyInput
		image *service.ImageUpload
	)
	if isMultipart(r) {
		f, err := h.parseMultipart(w, r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		defer f.cleanup()
		in = f.createInput()
		if image, err = f.image(); err == nil {
			err = f.err()
		}
		if err != nil {
			h.fail(w, r, err)
			return
		}
	} else if err := decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	prop, err := h.properties.Create(r.Context(), principal(r), in, image)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusCreated, PropertyResponse{Message: "property created", Property: prop})
}

// Update handles PUT /api/properties/{id}
func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var (
		in    service.UpdatePropertyInput
		image *service.ImageUpload
	)
	if isMultipart(r) {
		f, err := h.parseMultipart(w, r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		defer f.cleanup()
		in = f.updateInput()
		if image, err = f.image(); err == nil {
			err = f.err()
		}
		if err != nil {
			h.fail(w, r, err)
			return
		}
	} else if err := decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	prop, err := h.properties.Update(r.Context(), principal(r), r.PathValue("id"), in, image)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, PropertyResponse{Message: "property updated", Property: prop})
}

// Delete handles DELETE /api/properties/{id}
func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	summary, err := h.properties.Delete(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, DeleteResponse{Message: "property deleted", Deleted: summary})
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// propertyForm reads listing fields from a parsed multipart form and
// collects conversion errors as field errors.
type propertyForm struct {
	r      *http.Request
	values url.Values
	fields []domain.FieldError
	files  []io.Closer
}

func (h *PropertyHandler) parseMultipart(w http.ResponseWriter, r *http.Request) (*propertyForm, error) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.BadRequest("upload too large")
		}
		return nil, domain.BadRequest("invalid multipart body")
	}
	return &propertyForm{r: r, values: r.MultipartForm.Value}, nil
}

func (f *propertyForm) cleanup() {
	for _, c := range f.files {
		_ = c.Close()
	}
	if f.r.MultipartForm != nil {
		_ = f.r.MultipartForm.RemoveAll()
	}
}

func (f *propertyForm) err() error {
	if len(f.fields) == 0 {
		return nil
	}
	return domain.BadRequest("validation failed", f.fields...)
}

func (f *propertyForm) str(name string) *string {
	vs, ok := f.values[name]
	if !ok || len(vs) == 0 {
		return nil
	}
	v := strings.TrimSpace(vs[0])
	return &v
}

func (f *propertyForm) integer(name string) *int {
	s := f.str(name)
	if s == nil || *s == "" {
		return nil
	}
	n, err := strconv.Atoi(*s)
	if err != nil {
		f.fields = append(f.fields, domain.FieldError{Field: name, Message: "must be an integer"})
		return nil
	}
	return &n
}

func (f *propertyForm) number(name string) *decimal.Decimal {
	s := f.str(name)
	if s == nil || *s == "" {
		return nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		f.fields = append(f.fields, domain.FieldError{Field: name, Message: "must be a number"})
		return nil
	}
	return &d
}

func (f *propertyForm) createInput() service.CreatePropertyInput {
	return service.CreatePropertyInput{
		Title:       deref(f.str("title")),
		Description: f.str("description"),
		Location:    deref(f.str("location")),
		Price:       f.number("price"),
		Type:        domain.PropertyType(deref(f.str("type"))),
		Beds:        derefInt(f.integer("beds")),
		Baths:       derefInt(f.integer("baths")),
		Sqft:        derefInt(f.integer("sqft")),
		ImageURL:    f.str("image_url"),
		Status:      domain.PropertyStatus(deref(f.str("status"))),
	}
}

func (f *propertyForm) updateInput() service.UpdatePropertyInput {
	in := service.UpdatePropertyInput{
		Title:       f.str("title"),
		Description: f.str("description"),
		Location:    f.str("location"),
		Price:       f.number("price"),
		Beds:        f.integer("beds"),
		Baths:       f.integer("baths"),
		Sqft:        f.integer("sqft"),
		ImageURL:    f.str("image_url"),
	}
	if t := f.str("type"); t != nil {
		pt := domain.PropertyType(*t)
		in.Type = &pt
	}
	if s := f.str("status"); s != nil {
		ps := domain.PropertyStatus(*s)
		in.Status = &ps
	}
	return in
}

// image returns the uploaded "image" file, or nil when none was sent.
func (f *propertyForm) image() (*service.ImageUpload, error) {
	file, header, err := f.r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.BadRequest("invalid image upload")
	}
	f.files = append(f.files, file)
	return &service.ImageUpload{Filename: header.Filename, Content: file}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
