package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-service/internal/models"
	"rental-service/internal/services"
)

type ContractHandler struct {
	contractService *services.ContractService
	billingService  *services.BillingService
}

func NewContractHandler(contractService *services.ContractService, billingService *services.BillingService) *ContractHandler {
	return &ContractHandler{
		contractService: contractService,
		billingService:  billingService,
	}
}

func (h *ContractHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	contracts := router.Group("/contracts", auth)
	contracts.POST("/new-contract", h.Create)
	contracts.GET("/apartment/:apartmentId", h.ListByApartment)
	contracts.GET("/:id", h.Get)
	contracts.GET("/:id/versions", h.Versions)
	contracts.GET("/:id/versions/:label", h.Version)
	contracts.PUT("/:id", h.MajorUpdate)
	contracts.PUT("/:id/appendix", h.Appendix)
	contracts.PATCH("/:id/terminate", h.Terminate)
	contracts.POST("/:id/process-billing", h.ProcessBilling)
}

func (h *ContractHandler) Create(c *gin.Context) {
	var req models.NewContractRequest
	if !bind(c, &req) {
		return
	}
	contract, err := h.contractService.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, contract)
}

func (h *ContractHandler) ListByApartment(c *gin.Context) {
	contracts, err := h.contractService.ListByApartment(c.Request.Context(), actorFrom(c), c.Param("apartmentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, contracts)
}

func (h *ContractHandler) Get(c *gin.Context) {
	contract, err := h.contractService.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, contract)
}

func (h *ContractHandler) Versions(c *gin.Context) {
	versions, err := h.contractService.Versions(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, versions)
}

func (h *ContractHandler) Version(c *gin.Context) {
	v, err := h.contractService.Version(c.Request.Context(), actorFrom(c), c.Param("id"), c.Param("label"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, v)
}

func (h *ContractHandler) MajorUpdate(c *gin.Context) {
	var req models.ContractUpdateRequest
	if !bind(c, &req) {
		return
	}
	contract, err := h.contractService.MajorUpdate(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, contract)
}

func (h *ContractHandler) Appendix(c *gin.Context) {
	var req models.AppendixRequest
	if !bind(c, &req) {
		return
	}
	contract, err := h.contractService.Appendix(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, contract)
}

func (h *ContractHandler) Terminate(c *gin.Context) {
	contract, err := h.contractService.Terminate(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, contract)
}

func (h *ContractHandler) ProcessBilling(c *gin.Context) {
	var req models.ProcessBillingRequest
	if !bind(c, &req) {
		return
	}
	bill, err := h.billingService.GenerateFromContract(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, bill)
}
