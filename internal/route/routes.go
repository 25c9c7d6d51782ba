package route

import (
	"net/http"
	"os"
	"path/filepath"

	"kiosk/internal/cart"
	"kiosk/internal/checkout"
	"kiosk/internal/config"
	"kiosk/internal/handler"
	"kiosk/internal/logger"
	"kiosk/internal/middleware"
	"kiosk/internal/repository"
	"kiosk/internal/service/websocket"
)

// Dependencies groups everything the HTTP surface serves.
type Dependencies struct {
	Config       *config.Config
	Logger       *logger.Logger
	Hub          *websocket.HubService
	Board        *cart.Board
	Checkout     *checkout.Flow
	Products     repository.ProductRepository
	Purchases    repository.PurchaseRepository
	Evidence     repository.EvidenceRepository
	StaticFolder string
}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(deps Dependencies) http.Handler {
	cfg, logger := deps.Config, deps.Logger
	staticDir := deps.StaticFolder
	if staticDir == "" {
		staticDir = "static"
	}

	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	// Kiosk endpoints
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(deps.Hub, logger))
	mux.HandleFunc("/api/cart", handler.CartHandler(deps.Board, logger))
	mux.HandleFunc("/api/products", handler.ProductsHandler(deps.Products, logger))
	mux.HandleFunc("/api/checkout", handler.CheckoutStatusHandler(deps.Checkout, logger))
	mux.HandleFunc("/api/checkout/start", handler.CheckoutStartHandler(deps.Checkout, logger))
	mux.HandleFunc("/api/checkout/method", handler.CheckoutMethodHandler(deps.Checkout, logger))
	mux.HandleFunc("/api/checkout/confirm", handler.CheckoutConfirmHandler(deps.Checkout, logger))
	mux.HandleFunc("/api/checkout/cancel", handler.CheckoutCancelHandler(deps.Checkout, logger))

	// Operator endpoints
	mux.HandleFunc("/api/purchases", handler.GetPurchasesHandler(deps.Purchases, logger))
	mux.HandleFunc("/api/purchases/evidence", handler.ViewEvidenceHandler(deps.Evidence, logger))

	// Log endpoints
	mux.HandleFunc("/logs/info", handler.ShowInfoLogsHandler(cfg))
	mux.HandleFunc("/logs/warning", handler.ShowWarningLogsHandler(cfg))
	mux.HandleFunc("/logs/error", handler.ShowErrorLogsHandler(cfg))

	mux.HandleFunc("/logs/info/clear", handler.ClearInfoLogsHandler(logger))
	mux.HandleFunc("/logs/warning/clear", handler.ClearWarningLogsHandler(logger))
	mux.HandleFunc("/logs/error/clear", handler.ClearErrorLogsHandler(logger))

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /operator -> /static/operator.html
	mux.HandleFunc("/", dynamicHTMLHandler(staticDir))

	// Apply middleware
	return middleware.AuthMiddleware(mux)
}
