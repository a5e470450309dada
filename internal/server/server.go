package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"gymcore/internal/auth"
	"gymcore/internal/booking"
	"gymcore/internal/checkin"
	"gymcore/internal/config"
	"gymcore/internal/membership"
	"gymcore/internal/notify"
	"gymcore/internal/payment"
	"gymcore/internal/schedule"
	"gymcore/internal/user"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
}

func New(db *sqlx.DB, cfg *config.Config, notifier *notify.Service) *Server {
	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RequestLoggingMiddleware())

	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo, cfg.JWTSecret)
	userHandler := user.NewHandler(userService)

	scheduleRepo := schedule.NewRepository(db)
	scheduleService := schedule.NewService(scheduleRepo)
	scheduleHandler := schedule.NewHandler(scheduleService)

	bookingRepo := booking.NewRepository(db)
	bookingService := booking.NewService(bookingRepo, notifier)
	bookingHandler := booking.NewHandler(bookingService)

	checkinService := checkin.NewService(bookingRepo, cfg.CheckinSecret, cfg.CheckinMaxAgeMinutes)
	checkinHandler := checkin.NewHandler(checkinService)

	membershipRepo := membership.NewRepository(db)
	membershipHandler := membership.NewHandler(membershipRepo)

	paymentRepo := payment.NewRepository(db)
	paymentService := payment.NewService(paymentRepo, membershipRepo, userRepo, notifier, payment.BankInfo{
		Name:          cfg.BankName,
		AccountName:   cfg.BankAccountName,
		AccountNumber: cfg.BankAccountNumber,
	})
	paymentHandler := payment.NewHandler(paymentService)

	public := router.Group("/auth")
	public.Use(RateLimitMiddleware(5, 10))
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.RefreshToken)
	}

	router.GET("/plans", membershipHandler.ListPlans)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)

		protected.GET("/classes", scheduleHandler.ListClasses)
		protected.GET("/classes/:classID/schedules", scheduleHandler.ListSchedules)

		protected.POST("/schedules/:scheduleID/book", bookingHandler.Book)
		protected.POST("/bookings/:bookingID/cancel", bookingHandler.Cancel)
		protected.GET("/bookings", bookingHandler.ListMyBookings)

		protected.GET("/checkin", checkinHandler.GetToken)

		protected.GET("/memberships/me", membershipHandler.GetMine)

		protected.POST("/payments", paymentHandler.Create)
		protected.GET("/payments", paymentHandler.ListMine)
		protected.GET("/payments/:id", paymentHandler.Get)
		protected.POST("/payments/:id/proof", paymentHandler.UploadProof)
	}

	// Staff routes: trainers run classes, so they manage schedules and scan
	// check-ins. Admins inherit everything.
	staff := router.Group("/")
	staff.Use(authMiddleware, auth.RequireRole(auth.RoleTrainer, auth.RoleAdmin))
	{
		staff.POST("/classes", scheduleHandler.CreateClass)
		staff.POST("/schedules", scheduleHandler.CreateSchedule)
		staff.PATCH("/schedules/:scheduleID", scheduleHandler.UpdateSchedule)
		staff.POST("/schedules/:scheduleID/cancel", scheduleHandler.CancelSchedule)
		staff.GET("/schedules/:scheduleID/bookings", bookingHandler.ListBookingsBySchedule)

		staff.POST("/checkin", checkinHandler.CheckIn)
		staff.POST("/bookings/:bookingID/no-show", bookingHandler.MarkNoShow)
		staff.POST("/bookings/:bookingID/complete", bookingHandler.Complete)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/plans", membershipHandler.CreatePlan)
		admin.GET("/payments", paymentHandler.ListPending)
		admin.POST("/payments/:id/confirm", paymentHandler.Confirm)
		admin.POST("/payments/:id/reject", paymentHandler.Reject)
		admin.POST("/payments/:id/refund", paymentHandler.Refund)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
