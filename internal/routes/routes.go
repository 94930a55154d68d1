package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"medibook-server/internal/config"
	"medibook-server/internal/handlers"
	"medibook-server/internal/middleware"
	"medibook-server/internal/models"
	"medibook-server/internal/notify"
	"medibook-server/internal/realtime"
	"medibook-server/internal/services"
)

// Dependencies are the collaborators the HTTP handlers are built from.
type Dependencies struct {
	DB           *gorm.DB
	Config       *config.Config
	Appointments *services.AppointmentService
	Realtime     realtime.Publisher
	Dispatcher   notify.Dispatcher
	WebSocket    *realtime.Handler
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	db, cfg := deps.DB, deps.Config

	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	doctorHandler := handlers.NewDoctorHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(deps.Appointments)
	chatHandler := handlers.NewChatHandler(db, deps.Realtime, deps.Dispatcher)
	reviewHandler := handlers.NewReviewHandler(db)
	prescriptionHandler := handlers.NewPrescriptionHandler(db, deps.Dispatcher)
	medicalRecordHandler := handlers.NewMedicalRecordHandler(db, cfg.MaxUploadBytes)
	notificationHandler := handlers.NewNotificationHandler(db)
	analyticsHandler := handlers.NewAnalyticsHandler(db)

	patientOnly := middleware.RoleAuthMiddleware(models.RolePatient)
	doctorOnly := middleware.RoleAuthMiddleware(models.RoleDoctor)
	adminOnly := middleware.RoleAuthMiddleware(models.RoleAdmin)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
			authRoutes.POST("/logout", authHandler.Logout)
		}

		public.GET("/doctors", doctorHandler.GetDoctors)
		public.GET("/reviews/doctor/:doctorId", reviewHandler.GetDoctorReviews)

		// The websocket authenticates with ?token= since browsers cannot set headers on upgrade.
		if deps.WebSocket != nil {
			public.GET("/ws", deps.WebSocket.Connect)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		doctorRoutes := private.Group("/doctors")
		{
			doctorRoutes.POST("/profile", doctorOnly, doctorHandler.CreateProfile)
			doctorRoutes.PUT("/profile", doctorOnly, doctorHandler.UpdateProfile)
			doctorRoutes.GET("/profile", doctorOnly, doctorHandler.GetProfile)
			doctorRoutes.GET("/patients", doctorOnly, userHandler.GetDoctorPatients)
			doctorRoutes.GET("/appointments/list", doctorOnly, appointmentHandler.GetDoctorAppointments)
			doctorRoutes.PUT("/appointments/:id", doctorOnly, appointmentHandler.UpdateAppointmentStatus)
			doctorRoutes.GET("/:id", doctorHandler.GetDoctorByID)
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", patientOnly, appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("/my-appointments", patientOnly, appointmentHandler.GetMyAppointments)
			appointmentRoutes.PUT("/:id/cancel", patientOnly, appointmentHandler.CancelAppointment)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID) // parties only, checked in the service
		}

		chatRoutes := private.Group("/chats")
		{
			chatRoutes.GET("", chatHandler.GetChats)
			chatRoutes.POST("", patientOnly, chatHandler.CreateChat)
			chatRoutes.GET("/:chatId", chatHandler.GetChat)
			chatRoutes.POST("/:chatId/messages", chatHandler.SendMessage)
			chatRoutes.PUT("/:chatId/read", chatHandler.MarkRead)
		}

		reviewRoutes := private.Group("/reviews")
		{
			reviewRoutes.POST("", patientOnly, reviewHandler.CreateReview)
			reviewRoutes.PUT("/:reviewId/respond", doctorOnly, reviewHandler.RespondToReview)
		}

		prescriptionRoutes := private.Group("/prescriptions")
		{
			prescriptionRoutes.POST("", doctorOnly, prescriptionHandler.CreatePrescription)
			prescriptionRoutes.GET("/my-prescriptions", patientOnly, prescriptionHandler.GetPatientPrescriptions)
			prescriptionRoutes.GET("/patient/:patientId", doctorOnly, prescriptionHandler.GetDoctorPrescriptions)
			prescriptionRoutes.POST("/:prescriptionId/refill", patientOnly, prescriptionHandler.RequestRefill)
			prescriptionRoutes.PUT("/:prescriptionId/status", doctorOnly, prescriptionHandler.UpdatePrescriptionStatus)
		}

		medicalRecordRoutes := private.Group("/medical-records")
		{
			medicalRecordRoutes.POST("", doctorOnly, medicalRecordHandler.CreateMedicalRecord)
			medicalRecordRoutes.GET("/my-records", patientOnly, medicalRecordHandler.GetMyRecords)
			medicalRecordRoutes.GET("/patient/:patientId", doctorOnly, medicalRecordHandler.GetPatientRecords)
			medicalRecordRoutes.GET("/attachments/:attachmentId", medicalRecordHandler.GetMedicalRecordAttachment)
			medicalRecordRoutes.GET("/:id", medicalRecordHandler.GetMedicalRecordByID)
			medicalRecordRoutes.PUT("/:id", doctorOnly, medicalRecordHandler.UpdateMedicalRecord)
			medicalRecordRoutes.DELETE("/:id", doctorOnly, medicalRecordHandler.DeleteMedicalRecord)
			medicalRecordRoutes.POST("/:id/attachments", doctorOnly, medicalRecordHandler.UploadMedicalRecordAttachment)
		}

		notificationRoutes := private.Group("/notifications")
		{
			notificationRoutes.GET("", notificationHandler.GetNotifications)
			notificationRoutes.PUT("/read-all", notificationHandler.MarkAllAsRead)
			notificationRoutes.PUT("/:notificationId/read", notificationHandler.MarkAsRead)
			notificationRoutes.DELETE("/:notificationId", notificationHandler.DeleteNotification)
		}

		analyticsRoutes := private.Group("/analytics")
		{
			analyticsRoutes.GET("/doctor", doctorOnly, analyticsHandler.GetDoctorAnalytics)
			analyticsRoutes.GET("/patient", patientOnly, analyticsHandler.GetPatientAnalytics)
			analyticsRoutes.GET("/admin", adminOnly, analyticsHandler.GetAdminAnalytics)
		}

		adminRoutes := private.Group("/admin/users")
		adminRoutes.Use(adminOnly)
		{
			adminRoutes.GET("", userHandler.GetUsers)
			adminRoutes.GET("/:id", userHandler.GetUserByID)
			adminRoutes.PUT("/:id", userHandler.UpdateUser)
			adminRoutes.DELETE("/:id", userHandler.DeleteUser)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
