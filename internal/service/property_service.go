package service

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/observability/metrics"
	"github.com/kushtati/kushtati-immo-api/internal/security"
	"github.com/kushtati/kushtati-immo-api/internal/security/audit"
)

// PropertyService manages listings
type PropertyService struct {
	properties domain.PropertyRepository
	images     domain.ImageStore
	tx         domain.Transactor
	authz      *security.AuthorizationService
	audit      *audit.Logger
	validate   *Validator
	logger     *slog.Logger
}

func NewPropertyService(
	properties domain.PropertyRepository,
	images domain.ImageStore,
	tx domain.Transactor,
	authz *security.AuthorizationService,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *PropertyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PropertyService{
		properties: properties,
		images:     images,
		tx:         tx,
		authz:      authz,
		audit:      auditLog,
		validate:   NewValidator(),
		logger:     logger,
	}
}

// PropertyQuery holds listing filters as they arrive in the query string.
type PropertyQuery struct {
	Type     string
	Status   string
	MinPrice string
	MaxPrice string
	Location string
}

type CreatePropertyInput struct {
	Title       string                `json:"title" validate:"required,max=255"`
	Description *string               `json:"description" validate:"omitempty,max=5000"`
	Location    string                `json:"location" validate:"required,max=255"`
	Price       *decimal.Decimal      `json:"price" validate:"omitempty,gte=0"`
	Type        domain.PropertyType   `json:"type" validate:"required,oneof=Sale Rent"`
	Beds        int                   `json:"beds" validate:"gte=0"`
	Baths       int                   `json:"baths" validate:"gte=0"`
	Sqft        int                   `json:"sqft" validate:"gte=0"`
	ImageURL    *string               `json:"image_url" validate:"omitempty,max=500"`
	Status      domain.PropertyStatus `json:"status" validate:"omitempty,oneof=available rented sold"`
}

// UpdatePropertyInput is a partial update. Nil fields keep their values.
type UpdatePropertyInput struct {
	Title       *string                `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string                `json:"description" validate:"omitempty,max=5000"`
	Location    *string                `json:"location" validate:"omitempty,min=1,max=255"`
	Price       *decimal.Decimal       `json:"price" validate:"omitempty,gte=0"`
	Type        *domain.PropertyType   `json:"type" validate:"omitempty,oneof=Sale Rent"`
	Beds        *int                   `json:"beds" validate:"omitempty,gte=0"`
	Baths       *int                   `json:"baths" validate:"omitempty,gte=0"`
	Sqft        *int                   `json:"sqft" validate:"omitempty,gte=0"`
	ImageURL    *string                `json:"image_url" validate:"omitempty,max=500"`
	Status      *domain.PropertyStatus `json:"status" validate:"omitempty,oneof=available rented sold"`
}

// ImageUpload is an image file attached to a create or update.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// List returns listings matching every given filter, newest first.
func (s *PropertyService) List(ctx context.Context, q PropertyQuery) ([]*domain.Property, error) {
	filter, err := parsePropertyQuery(q)
	if err != nil {
		return nil, err
	}
	props, err := s.properties.List(ctx, filter)
	if err != nil {
		return nil, storageError(s.logger, "list properties", err, "property not found")
	}
	return props, nil
}

func parsePropertyQuery(q PropertyQuery) (domain.PropertyFilter, error) {
	var (
		f      domain.PropertyFilter
		fields []domain.FieldError
	)
	if q.Type != "" {
		t := domain.PropertyType(q.Type)
		if !t.Valid() {
			fields = append(fields, domain.FieldError{Field: "type", Message: "must be one of: Sale, Rent"})
		}
		f.Type = &t
	}
	if q.Status != "" {
		st := domain.PropertyStatus(q.Status)
		if !st.Valid() {
			fields = append(fields, domain.FieldError{Field: "status", Message: "must be one of: available, rented, sold"})
		}
		f.Status = &st
	}
	parsePrice := func(raw, name string) *decimal.Decimal {
		if raw == "" {
			return nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			fields = append(fields, domain.FieldError{Field: name, Message: "must be a number"})
			return nil
		}
		return &d
	}
	f.MinPrice = parsePrice(q.MinPrice, "minPrice")
	f.MaxPrice = parsePrice(q.MaxPrice, "maxPrice")
	f.Location = strings.TrimSpace(q.Location)

	if len(fields) > 0 {
		return f, domain.BadRequest("invalid filter", fields...)
	}
	return f, nil
}

func (s *PropertyService) Get(ctx context.Context, id string) (*domain.Property, error) {
	prop, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(s.logger, "get property", err, "property not found")
	}
	return prop, nil
}

// ListByOwner returns the caller's own listings.
func (s *PropertyService) ListByOwner(ctx context.Context, p domain.Principal, ownerID string) ([]*domain.Property, error) {
	if err := s.authz.AuthorizeOwnerListing(p, ownerID); err != nil {
		return nil, err
	}
	props, err := s.properties.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, storageError(s.logger, "list owner properties", err, "property not found")
	}
	return props, nil
}

// Create publishes a listing owned by the caller. An uploaded image takes
// precedence over image_url.
func (s *PropertyService) Create(ctx context.Context, p domain.Principal, in CreatePropertyInput, image *ImageUpload) (*domain.Property, error) {
	if err := s.authz.ValidatePermission(p, security.PermCreateProperty); err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	in.Description = trimOptional(in.Description)
	in.ImageURL = trimOptional(in.ImageURL)
	if err := s.validate.Struct(in, requiredField(in.Price == nil, "price")...); err != nil {
		return nil, err
	}

	prop := &domain.Property{
		OwnerID:     p.ID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Price:       *in.Price,
		Type:        in.Type,
		Beds:        in.Beds,
		Baths:       in.Baths,
		Sqft:        in.Sqft,
		ImageURL:    in.ImageURL,
		Status:      in.Status,
	}
	if prop.Status == "" {
		prop.Status = domain.PropertyStatusAvailable
	}

	uploaded, err := s.storeImage(ctx, image)
	if err != nil {
		return nil, err
	}
	if uploaded != "" {
		prop.ImageURL = &uploaded
	}

	if err := s.properties.Create(ctx, prop); err != nil {
		s.discardImage(ctx, uploaded)
		return nil, storageError(s.logger, "create property", err, "property not found")
	}

	s.logger.Info("property created",
		slog.String("property_id", prop.ID),
		slog.String("owner_id", p.ID),
	)
	return s.Get(ctx, prop.ID)
}

// Update applies a partial change to a listing the caller owns. Input is
// validated before the listing is loaded.
func (s *PropertyService) Update(ctx context.Context, p domain.Principal, id string, in UpdatePropertyInput, image *ImageUpload) (*domain.Property, error) {
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if in.Location != nil {
		l := strings.TrimSpace(*in.Location)
		in.Location = &l
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	prop, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizePropertyWrite(p, prop); err != nil {
		return nil, err
	}

	previousImage := prop.ImageURL
	applyPropertyPatch(prop, in)

	uploaded, err := s.storeImage(ctx, image)
	if err != nil {
		return nil, err
	}
	if uploaded != "" {
		prop.ImageURL = &uploaded
	}

	if err := s.properties.Update(ctx, prop); err != nil {
		s.discardImage(ctx, uploaded)
		return nil, storageError(s.logger, "update property", err, "property not found")
	}
	if previousImage != nil && (prop.ImageURL == nil || *prop.ImageURL != *previousImage) {
		s.discardImage(ctx, *previousImage)
	}

	s.logger.Info("property updated", slog.String("property_id", id))
	return s.Get(ctx, id)
}

func applyPropertyPatch(prop *domain.Property, in UpdatePropertyInput) {
	if in.Title != nil {
		prop.Title = *in.Title
	}
	if in.Description != nil {
		prop.Description = trimOptional(in.Description)
	}
	if in.Location != nil {
		prop.Location = *in.Location
	}
	if in.Price != nil {
		prop.Price = *in.Price
	}
	if in.Type != nil {
		prop.Type = *in.Type
	}
	if in.Beds != nil {
		prop.Beds = *in.Beds
	}
	if in.Baths != nil {
		prop.Baths = *in.Baths
	}
	if in.Sqft != nil {
		prop.Sqft = *in.Sqft
	}
	if in.ImageURL != nil {
		prop.ImageURL = trimOptional(in.ImageURL)
	}
	if in.Status != nil {
		prop.Status = *in.Status
	}
}

// Delete removes a listing the caller owns together with its contracts and
// their payments.
func (s *PropertyService) Delete(ctx context.Context, p domain.Principal, id string) (*domain.CascadeSummary, error) {
	prop, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizePropertyWrite(p, prop); err != nil {
		return nil, err
	}

	var summary *domain.CascadeSummary
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		summary, err = s.properties.DeleteCascade(ctx, id)
		return err
	})
	if err != nil {
		return nil, storageError(s.logger, "delete property", err, "property not found")
	}

	if prop.ImageURL != nil {
		s.discardImage(ctx, *prop.ImageURL)
	}
	s.audit.LogCascade(ctx, p.ID, "property", id, summary)
	metrics.ObserveCascade(summary.Payments, summary.Contracts, summary.Properties, summary.Users)
	return summary, nil
}

func (s *PropertyService) storeImage(ctx context.Context, image *ImageUpload) (string, error) {
	if image == nil || s.images == nil {
		return "", nil
	}
	url, err := s.images.Save(ctx, image.Filename, image.Content)
	if err != nil {
		return "", storageError(s.logger, "store image", err, "image not found")
	}
	return url, nil
}

// discardImage removes a stored image. Failures leave an orphaned file and
// are only logged.
func (s *PropertyService) discardImage(ctx context.Context, url string) {
	if url == "" || s.images == nil {
		return
	}
	if err := s.images.Remove(ctx, url); err != nil {
		s.logger.Warn("failed to remove image",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}
}
