package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fee-api/internal/middleware"
	"github.com/noah-isme/school-fee-api/internal/models"
)

// Handlers groups the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Auth          *AuthHandler
	Students      *StudentHandler
	FeeStructures *FeeStructureHandler
	Payments      *PaymentHandler
	Reports       *ReportHandler
}

// RegisterRoutes mounts every API route on api. Everything except register
// and login requires a bearer token; deletes additionally require the ADMIN
// role and ?confirm=true.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator, log *zap.Logger) {
	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/auth/me", h.Auth.Me)

	deleteGuard := []gin.HandlerFunc{middleware.RequireRoles(models.RoleAdmin), middleware.ConfirmDelete()}

	students := secured.Group("/students", middleware.Audit(log, "students"))
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", h.Students.Update)
	students.DELETE("/:id", append(deleteGuard, h.Students.Delete)...)
	students.GET("/:id/payments", h.Payments.ListByStudent)

	fees := secured.Group("/fee-structures", middleware.Audit(log, "fee_structures"))
	fees.GET("", h.FeeStructures.List)
	fees.POST("", h.FeeStructures.Create)
	fees.GET("/:id", h.FeeStructures.Get)
	fees.PUT("/:id", h.FeeStructures.Update)
	fees.DELETE("/:id", append(deleteGuard, h.FeeStructures.Delete)...)

	payments := secured.Group("/payments", middleware.Audit(log, "payments"))
	payments.GET("", h.Payments.List)
	payments.POST("", h.Payments.Create)
	payments.POST("/batch", h.Payments.CreateBatch)
	payments.GET("/receipt-number", h.Payments.ReceiptNumber)
	payments.GET("/:id", h.Payments.Get)
	payments.PUT("/:id", h.Payments.Update)
	payments.DELETE("/:id", append(deleteGuard, h.Payments.Delete)...)

	secured.GET("/dashboard", h.Reports.Dashboard)
	reports := secured.Group("/reports")
	reports.GET("/summary", h.Reports.Summary)
	reports.GET("/export.csv", h.Reports.Export)
}
