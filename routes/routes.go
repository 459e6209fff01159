package routes

import (
	"bookhub-backend/config"
	"bookhub-backend/controllers"
	"bookhub-backend/models"
	"bookhub-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"https://app.bookhub.dev",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)

		auth.Use(utils.AuthMiddleware())
		auth.GET("/me", controllers.Me)
	}

	// Public browsing routes
	public := r.Group("/api/public")
	{
		public.GET("/services/:id", controllers.GetService)
		public.GET("/providers/:providerId/slots", controllers.GetAvailableSlots)
	}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())
	{
		// Booking routes (both roles)
		bookings := api.Group("/bookings")
		{
			bookings.POST("", controllers.CreateBooking)
			bookings.GET("", controllers.GetBookings)
			bookings.GET("/:id", controllers.GetBooking)
			bookings.PUT("/:id/cancel", controllers.CancelBooking)
			bookings.PUT("/:id/reschedule", controllers.RescheduleBooking)
		}

		// Recurring series routes
		series := api.Group("/series")
		{
			series.POST("", controllers.CreateSeries)
			series.GET("/:id", controllers.GetSeries)
			series.PUT("/:id/pause", controllers.PauseSeries)
			series.PUT("/:id/resume", controllers.ResumeSeries)
			series.PUT("/:id/cancel", controllers.CancelSeries)
		}

		// Policy preview (both roles)
		api.POST("/policies/evaluate", controllers.EvaluatePolicy)

		// Profile routes
		profile := api.Group("/profile")
		{
			profile.GET("", controllers.GetProfile)
			profile.PUT("", controllers.UpdateProfile)
			profile.PUT("/password", controllers.ChangePassword)
		}

		// Provider-only routes
		provider := api.Group("/provider", utils.RequireRole(models.RoleProvider))
		{
			services := provider.Group("/services")
			{
				services.POST("", controllers.CreateService)
				services.GET("", controllers.GetServices)
				services.PUT("/:id", controllers.UpdateService)
				services.DELETE("/:id", controllers.DeleteService)
			}

			availability := provider.Group("/availability")
			{
				availability.POST("", controllers.CreateWindow)
				availability.GET("", controllers.GetWindows)
				availability.PUT("/:id", controllers.UpdateWindow)
				availability.DELETE("/:id", controllers.DisableWindow)
			}

			provider.POST("/slots/generate", controllers.GenerateSlots)

			policies := provider.Group("/policies")
			{
				policies.POST("", controllers.CreatePolicy)
				policies.GET("/service/:serviceId", controllers.GetPolicies)
				policies.PUT("/:id", controllers.UpdatePolicy)
			}

			bookingActions := provider.Group("/bookings")
			{
				bookingActions.PUT("/:id/accept", controllers.AcceptBooking)
				bookingActions.PUT("/:id/decline", controllers.DeclineBooking)
				bookingActions.PUT("/:id/start", controllers.StartBooking)
				bookingActions.PUT("/:id/complete", controllers.CompleteBooking)
				bookingActions.PUT("/:id/no-show", controllers.MarkNoShow)
			}

			provider.GET("/dashboard", controllers.GetDashboardOverview)
		}
	}

	return r
}
