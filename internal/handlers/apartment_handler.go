package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"rental-service/internal/apperr"
	"rental-service/internal/models"
	"rental-service/internal/services"
)

type ApartmentHandler struct {
	apartmentService *services.ApartmentService
	billingService   *services.BillingService
}

func NewApartmentHandler(apartmentService *services.ApartmentService, billingService *services.BillingService) *ApartmentHandler {
	return &ApartmentHandler{
		apartmentService: apartmentService,
		billingService:   billingService,
	}
}

func (h *ApartmentHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	apartments := router.Group("/apartments", auth)
	apartments.POST("/create-apartment", h.Create)
	apartments.GET("/get-all-apartments", h.List)
	apartments.GET("/mine", h.ListMine)
	apartments.POST("/transfer-tenancy", h.TransferTenancy)

	apartments.GET("/:id", h.Get)
	apartments.PUT("/:id", h.Update)
	apartments.DELETE("/:id", h.Delete)
	apartments.PATCH("/:id/update-utilities", h.UpdateUtilities)
	apartments.POST("/:id/process-billing", h.ProcessBilling)
	apartments.POST("/:id/media", h.AddMedia)
	apartments.POST("/:id/tenants", h.AddTenant)
	apartments.DELETE("/:id/tenants/:tenantId", h.RemoveTenant)
}

// mediaFrom collects multipart files keyed by field name.
func mediaFrom(c *gin.Context) (services.MediaUploads, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	media := services.MediaUploads{}
	for field, files := range form.File {
		media[field] = files
	}
	return media, nil
}

// Create accepts either a JSON body or a multipart form whose "data" field
// holds the JSON listing next to the media files.
func (h *ApartmentHandler) Create(c *gin.Context) {
	var req models.CreateApartmentRequest
	var media services.MediaUploads

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		var err error
		if media, err = mediaFrom(c); err != nil {
			badRequest(c, err)
			return
		}
		if err := json.Unmarshal([]byte(c.PostForm("data")), &req); err != nil {
			badRequest(c, err)
			return
		}
	} else if !bind(c, &req) {
		return
	}

	apt, err := h.apartmentService.Create(c.Request.Context(), actorFrom(c), req, media)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, apt)
}

func parseNear(raw string) (*models.GeoPoint, error) {
	latRaw, lngRaw, ok := strings.Cut(raw, ",")
	if !ok {
		return nil, apperr.InvalidInput("near must be lat,lng")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil {
		return nil, apperr.InvalidInput("near latitude %q is not a number", latRaw)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngRaw), 64)
	if err != nil {
		return nil, apperr.InvalidInput("near longitude %q is not a number", lngRaw)
	}
	return &models.GeoPoint{Lat: lat, Lng: lng}, nil
}

func (h *ApartmentHandler) List(c *gin.Context) {
	page, limit, ok := pagination(c)
	if !ok {
		return
	}
	filter := models.ApartmentFilter{
		Status:  models.ApartmentStatus(c.Query("status")),
		OwnerID: c.Query("owner_id"),
		Page:    page,
		Limit:   limit,
	}
	if raw := c.Query("max_rent"); raw != "" {
		maxRent, err := decimal.NewFromString(raw)
		if err != nil {
			respondError(c, apperr.InvalidInput("max_rent %q is not a number", raw))
			return
		}
		filter.MaxRent = &maxRent
	}
	if raw := c.Query("near"); raw != "" {
		near, err := parseNear(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		filter.Near = near
		if filter.RadiusKm, err = strconv.ParseFloat(c.DefaultQuery("radius_km", "5"), 64); err != nil {
			respondError(c, apperr.InvalidInput("radius_km is not a number"))
			return
		}
	}

	apts, total, err := h.apartmentService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPaged(c, apts, page, limit, total)
}

func (h *ApartmentHandler) ListMine(c *gin.Context) {
	apts, err := h.apartmentService.ListForTenant(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, apts)
}

func (h *ApartmentHandler) Get(c *gin.Context) {
	apt, err := h.apartmentService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, apt)
}

func (h *ApartmentHandler) Update(c *gin.Context) {
	var req models.UpdateApartmentRequest
	if !bind(c, &req) {
		return
	}
	apt, err := h.apartmentService.Update(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, apt)
}

func (h *ApartmentHandler) Delete(c *gin.Context) {
	if err := h.apartmentService.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type updateUtilitiesRequest struct {
	models.UtilitiesPatch
	Revision *int64 `json:"revision"`
}

func (h *ApartmentHandler) UpdateUtilities(c *gin.Context) {
	var req updateUtilitiesRequest
	if !bind(c, &req) {
		return
	}
	apt, err := h.apartmentService.UpdateUtilities(c.Request.Context(), actorFrom(c), c.Param("id"), req.UtilitiesPatch, req.Revision)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, apt)
}

func (h *ApartmentHandler) ProcessBilling(c *gin.Context) {
	var req models.ProcessBillingRequest
	if !bind(c, &req) {
		return
	}
	bill, err := h.billingService.GenerateFromApartment(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, bill)
}

func (h *ApartmentHandler) AddMedia(c *gin.Context) {
	media, err := mediaFrom(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	apt, err := h.apartmentService.AddMedia(c.Request.Context(), actorFrom(c), c.Param("id"), media)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, apt)
}

func (h *ApartmentHandler) AddTenant(c *gin.Context) {
	var req models.AddTenantRequest
	if !bind(c, &req) {
		return
	}
	apt, err := h.apartmentService.AddTenant(c.Request.Context(), actorFrom(c), c.Param("id"), req.TenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, apt)
}

func (h *ApartmentHandler) RemoveTenant(c *gin.Context) {
	apt, err := h.apartmentService.RemoveTenant(c.Request.Context(), actorFrom(c), c.Param("id"), c.Param("tenantId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, apt)
}

func (h *ApartmentHandler) TransferTenancy(c *gin.Context) {
	var req models.TransferTenancyRequest
	if !bind(c, &req) {
		return
	}
	from, to, err := h.apartmentService.TransferTenancy(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"from": from, "to": to})
}
