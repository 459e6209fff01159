package main

import (
	"fmt"
	"log"
	"os"

	"bookhub-backend/config"
	"bookhub-backend/controllers"
	"bookhub-backend/models"
	"bookhub-backend/routes"
	"bookhub-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	config.ConnectDB()

	config.DB.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.AvailabilityWindow{},
		&models.TimeSlot{},
		&models.Booking{},
		&models.RecurringSeries{},
		&models.BookingPolicy{},
		&models.Payment{},
		&models.NotificationLog{},
	)
}

func main() {
	notifier := services.NewTwilioNotifier(config.DB)
	gateway := services.NewStripeGateway()
	controllers.Init(config.DB, notifier, gateway)

	scheduler := services.NewScheduler(config.DB, controllers.Bookings, controllers.Recurring, controllers.Escrow, notifier)
	scheduler.Start()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r := routes.SetupRouter()
	printRoutes(r)
	r.Run(":" + port)
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
