package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rental-service/internal/metrics"
	"rental-service/internal/services"
	utils "rental-service/shared/utils"
)

// Services are the dependencies every handler is built from.
type Services struct {
	Users         *services.UserService
	Apartments    *services.ApartmentService
	Contracts     *services.ContractService
	Billings      *services.BillingService
	Payments      *services.PaymentService
	Bids          *services.BidService
	Files         *services.FileService
	Notifications *services.NotificationService
	Sweep         *services.SweepService
}

// Pinger is anything the health check can ping.
type Pinger interface {
	PingContext(ctx context.Context) error
}

func NewRouter(svc Services, m *metrics.Metrics, db Pinger) *gin.Engine {
	router := gin.New()
	mw := NewMiddleware(svc.Users, m)
	router.Use(gin.Recovery(), mw.RequestLogger())
	router.MaxMultipartMemory = 32 << 20

	router.GET("/checkhealth", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, utils.CreateErrorResponse("UNHEALTHY", "database unreachable"))
				return
			}
		}
		respond(c, http.StatusOK, gin.H{"status": "Rental service is healthy"})
	})
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	auth := mw.Authenticate()
	NewUserHandler(svc.Users).RegisterRoutes(router, auth)
	NewApartmentHandler(svc.Apartments, svc.Billings).RegisterRoutes(router, auth)
	NewContractHandler(svc.Contracts, svc.Billings).RegisterRoutes(router, auth)
	NewBillingHandler(svc.Billings, svc.Sweep).RegisterRoutes(router, auth)
	NewPaymentHandler(svc.Payments).RegisterRoutes(router, auth)
	NewBidHandler(svc.Bids).RegisterRoutes(router, auth)
	NewFileHandler(svc.Files).RegisterRoutes(router, auth)
	NewNotificationHandler(svc.Notifications).RegisterRoutes(router, auth)
	return router
}
