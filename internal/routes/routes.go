package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mediconnect-server/internal/booking"
	"mediconnect-server/internal/config"
	"mediconnect-server/internal/handlers"
	"mediconnect-server/internal/middleware"
	"mediconnect-server/internal/models"
	"mediconnect-server/internal/notify"
	"mediconnect-server/internal/otp"
	"mediconnect-server/internal/pharmacy"
	"mediconnect-server/internal/store"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	// Core services share one gorm-backed record store
	recordStore := store.New(db)
	guard := booking.NewGuard(recordStore)
	sequencer := pharmacy.NewSequencer(recordStore)

	otpStore := otp.NewStore(redisClient, time.Duration(cfg.OTPTTLMinutes)*time.Minute)
	mailer := notify.NewMailer(cfg.SMTP)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg, otpStore, mailer)
	doctorHandler := handlers.NewDoctorHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(db, guard)
	pharmacyHandler := handlers.NewPharmacyHandler(db, sequencer, mailer)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/forgot-password", authHandler.ForgotPassword)
			authRoutes.POST("/verify-otp", authHandler.VerifyOTP)
			authRoutes.POST("/reset-password", authHandler.ResetPassword)
		}

		// Doctor directory and medicine catalogue are browsable without login
		public.GET("/doctors", doctorHandler.GetDoctors)
		public.GET("/doctors/:id", doctorHandler.GetDoctorByID)
		public.GET("/pharmacy/medicines", pharmacyHandler.GetMedicines)
		public.GET("/pharmacy/medicines/:id", pharmacyHandler.GetMedicineByID)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		// Doctor profile updates (self or admin, checked in handler)
		private.PUT("/doctors/:id", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), doctorHandler.UpdateDoctor)

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			// Patients book for themselves; cancellation authorization lives in the guard
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("/my-appointments", appointmentHandler.GetMyAppointments)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)       // Authorization inside handler
			appointmentRoutes.PUT("/:id", appointmentHandler.UpdateAppointment)        // Doctor/admin, checked in handler
			appointmentRoutes.DELETE("/:id", appointmentHandler.CancelAppointment)     // Patient/doctor on the appointment
		}

		// Pharmacy routes
		pharmacyRoutes := private.Group("/pharmacy")
		{
			staffOnly := middleware.RoleAuthMiddleware(models.RolePharmacist, models.RoleAdmin)

			pharmacyRoutes.POST("/medicines", staffOnly, pharmacyHandler.CreateMedicine)
			pharmacyRoutes.PUT("/medicines/:id", staffOnly, pharmacyHandler.UpdateMedicine)

			pharmacyRoutes.POST("/orders", pharmacyHandler.CreateOrder)
			pharmacyRoutes.GET("/orders", pharmacyHandler.GetOrders)
			pharmacyRoutes.PUT("/orders/:id", staffOnly, pharmacyHandler.UpdateOrderStatus)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
