// @title           easyQuote API
// @version         1.0
// @description     Quote management backend - quotes, versions, mapped rows and rows groups.

// @contact.name   API Support

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @schemes http https
package main

import (
	_ "backend/docs"
	"backend/handlers"
	"backend/repository"
	"backend/services"
	"backend/storage"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

var cronRunning int32

func CORSConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:9000",
		"http://localhost:8080",
		"http://localhost:3000",
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Content-Type", "Content-Length", "Accept-Encoding", "X-XSRF-TOKEN",
		"Accept", "Origin", "X-Requested-With", "Authorization", "User-Agent",
		"Cache-Control", "Referer",
		"Access-Control-Request-Method", "Access-Control-Request-Headers",
		"Accept-Language", "Accept-Charset", "DNT", "Connection",
	}
	corsConfig.AllowMethods = []string{
		"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD", "PATCH",
	}
	corsConfig.ExposeHeaders = []string{
		"Content-Length", "Authorization", "Content-Type", "Content-Disposition",
	}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

func safeGo(
	ctx context.Context,
	wg *sync.WaitGroup,
	name string,
	fn func(context.Context) error,
	cronLogger *log.Logger,
) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
				if cronLogger != nil {
					cronLogger.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
				}
			}
		}()

		if err := fn(ctx); err != nil {
			log.Printf("%s failed: %v", name, err)
			if cronLogger != nil {
				cronLogger.Printf("%s failed: %v", name, err)
			}
		} else {
			log.Printf("%s completed successfully", name)
			if cronLogger != nil {
				cronLogger.Printf("%s completed successfully", name)
			}
		}
	}()
}

func main() {
	db := storage.InitDB()
	gormDB := storage.InitGormDB()

	// Initialize Firebase Cloud Messaging service using HTTP v1 API
	credentialsPath := os.Getenv("FCM_CREDENTIALS_PATH")
	if credentialsPath == "" {
		credentialsPath = "firebase-credentials.json"
	}
	fcmService, err := services.NewFCMService(credentialsPath, db)
	if err != nil {
		log.Printf("Warning: Failed to initialize FCM service: %v. Push notifications will be disabled.", err)
		fcmService = nil
	} else {
		log.Println("FCM service initialized successfully")
	}

	emailService := services.NewEmailService(db)
	notifier := services.NewNotificationService(db, emailService, fcmService)

	auditService := services.NewAuditService(db)
	versionService := services.NewVersionService(gormDB, notifier)
	quoteService := services.NewQuoteService(gormDB)
	rowRepository := repository.NewRowRepository(db)
	lockProvider := services.NewPgAdvisoryLocker(db)
	groupService := services.NewGroupDescriptionService(
		versionService, rowRepository, quoteService, lockProvider, auditService)

	// Setup cron job to run maintenance daily at 02:30
	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(log.New(os.Stdout, "cron: ", log.LstdFlags))),
	)

	cronLogFile, err := os.OpenFile("cron_errors.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Failed to open cron error log file: %v", err)
	}
	cronLogger := log.New(cronLogFile, "CRON_ERROR: ", log.LstdFlags)

	_, err = c.AddFunc("30 2 * * *", func() {
		if !atomic.CompareAndSwapInt32(&cronRunning, 0, 1) {
			log.Println("Previous cron still running. Skipping this run.")
			if cronLogger != nil {
				cronLogger.Println("Previous cron still running. Skipping this run.")
			}
			return
		}
		defer atomic.StoreInt32(&cronRunning, 0)

		log.Println("Starting daily maintenance cron job")

		ctx, cancel := context.WithTimeout(context.Background(), 25*time.Minute)
		defer cancel()

		var wg sync.WaitGroup

		safeGo(ctx, &wg, "CleanupExpiredSessions", func(ctx context.Context) error {
			return storage.CleanupExpiredSessions(db)
		}, cronLogger)

		safeGo(ctx, &wg, "PurgeOldActivityLogs", func(ctx context.Context) error {
			n, err := storage.PurgeOldActivityLogs(db, 180*24*time.Hour)
			if err == nil && n > 0 {
				log.Printf("PurgeOldActivityLogs removed %d rows", n)
			}
			return err
		}, cronLogger)

		safeGo(ctx, &wg, "PurgeDeletedQuotes", func(ctx context.Context) error {
			n, err := storage.PurgeDeletedQuotes(db, 90*24*time.Hour)
			if err == nil && n > 0 {
				log.Printf("PurgeDeletedQuotes removed %d quotes", n)
			}
			return err
		}, cronLogger)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			log.Println("All cron jobs finished")
		case <-ctx.Done():
			log.Println("Cron timeout reached, jobs cancelled")
			if cronLogger != nil {
				cronLogger.Println("Cron timeout reached, jobs cancelled")
			}
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule daily maintenance cron job: %v", err)
	}

	c.Start()

	r := gin.Default()
	r.MaxMultipartMemory = 8 << 20

	r.Use(cors.New(CORSConfig()))

	// ==================== 1. AUTH & LOGIN ====================
	r.POST("/api/login", handlers.LoginHandler(db))
	r.POST("/api/refresh-token", handlers.RefreshTokenHandler(db))
	r.POST("/api/validate-session", handlers.ValidateSession(db))

	auth := r.Group("/api", handlers.SessionAuth(db))

	auth.POST("/logout", handlers.LogoutHandler(db))

	// ==================== 2. USERS ====================
	auth.POST("/users", handlers.CreateUserHandler(db))
	auth.GET("/users", handlers.GetUsersHandler(db))
	auth.PUT("/users/:id/suspend", handlers.SuspendUserHandler(db))

	// ==================== 3. QUOTES ====================
	auth.POST("/quotes", handlers.CreateQuoteHandler(quoteService))
	auth.GET("/quotes", handlers.GetQuotesHandler(quoteService))
	auth.GET("/quotes/:id", handlers.GetQuoteHandler(quoteService))
	auth.PUT("/quotes/:id", handlers.UpdateQuoteHandler(quoteService))
	auth.POST("/quotes/:id/submit", handlers.SubmitQuoteHandler(quoteService))
	auth.DELETE("/quotes/:id", handlers.DeleteQuoteHandler(quoteService))

	// ==================== 4. VERSIONS ====================
	auth.GET("/quotes/:id/versions", handlers.ListVersionsHandler(versionService))
	auth.PUT("/quotes/:id/versions/activate", handlers.SetActiveVersionHandler(versionService))
	auth.DELETE("/quotes/:id/versions/:versionId", handlers.DeleteVersionHandler(versionService))

	// ==================== 5. ROWS ====================
	auth.GET("/quotes/:id/rows", handlers.GetQuoteRowsHandler(versionService, rowRepository))
	auth.POST("/quotes/:id/rows/import", handlers.ImportRowsHandler(versionService, rowRepository))

	// ==================== 6. ROWS GROUPS ====================
	auth.GET("/quotes/:id/groups", handlers.GetRowsGroupsHandler(groupService))
	auth.GET("/quotes/:id/groups/search-rows", handlers.SearchGroupRowsHandler(groupService))
	auth.GET("/quotes/:id/groups/:groupId", handlers.FindRowsGroupHandler(groupService))
	auth.POST("/quotes/:id/groups", handlers.CreateRowsGroupHandler(groupService, versionService))
	auth.PUT("/quotes/:id/groups/select", handlers.SelectRowsGroupsHandler(groupService))
	auth.PUT("/quotes/:id/groups/move", handlers.MoveGroupRowsHandler(groupService))
	auth.PUT("/quotes/:id/groups/sort", handlers.SortRowsGroupsHandler(groupService))
	auth.PUT("/quotes/:id/groups/:groupId", handlers.UpdateRowsGroupHandler(groupService, versionService))
	auth.DELETE("/quotes/:id/groups/:groupId", handlers.DeleteRowsGroupHandler(groupService))

	// ==================== 7. EXPORT & QR ====================
	auth.GET("/quotes/:id/export/excel", handlers.ExportGroupsExcelHandler(quoteService, groupService))
	auth.GET("/quotes/:id/export/pdf", handlers.GenerateQuotePDF(quoteService, groupService))
	auth.GET("/quotes/:id/qr", handlers.GenerateQuoteQRCodeJPEG(quoteService))

	// ==================== 8. ACTIVITY LOGS ====================
	auth.GET("/logs", handlers.GetActivityLogsHandler(db))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	port := os.Getenv("PORT")
	if port == "" {
		port = "9000"
	}

	portInt, err := strconv.Atoi(port)
	if err != nil {
		log.Fatalf("Invalid PORT environment variable: %s. Must be a number.", port)
	}
	if portInt < 0 || portInt > 65535 {
		log.Fatalf("Invalid PORT: %d. Must be between 0 and 65535.", portInt)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cronCtx := c.Stop()
	select {
	case <-cronCtx.Done():
	case <-time.After(10 * time.Second):
		log.Println("Warning: cron jobs did not stop in time")
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// In-flight requests have finished; drain queued audit entries before
	// the process exits.
	if err := auditService.Shutdown(10 * time.Second); err != nil {
		log.Printf("Warning: audit queue drain error: %v", err)
	}
	log.Println("Server exiting")
}
