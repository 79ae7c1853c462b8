package main

import (
	"context"
	"os"

	"github.com/yigit/formatrack/internal/pkg/logger"
	"github.com/yigit/formatrack/internal/server"
)

// @title FormaTrack API
// @version 1.0
// @description Multi-tenant training management API: establishments, formations, schedules, messaging, assignments and virtual classes
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@formatrack.app

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	srv, err := server.NewServer(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
