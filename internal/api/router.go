package api

import (
	"net/http"

	_ "github.com/AlexZinkM/duo-wallet/docs" // swagger spec
	"github.com/AlexZinkM/duo-wallet/internal/handler"
	"github.com/AlexZinkM/duo-wallet/internal/monitoring"

	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRouter sets up router with handlers
func SetupRouter(device *handler.DeviceHandler) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Metrics
	mux.Handle("/metrics", monitoring.Handler())

	// Device endpoints. Private keys are only ever shown on the device.
	mux.HandleFunc("/device/command", device.Command)
	mux.HandleFunc("/device/addresses", device.Addresses)
	mux.HandleFunc("/device/status", device.Status)

	return mux
}
