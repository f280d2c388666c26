package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/DikshantJangra/hoperxpharma-sub005/config"
	"github.com/DikshantJangra/hoperxpharma-sub005/models"
	"github.com/DikshantJangra/hoperxpharma-sub005/providers/catalog"
	"github.com/DikshantJangra/hoperxpharma-sub005/providers/inventory"
	"github.com/DikshantJangra/hoperxpharma-sub005/services"
	"github.com/DikshantJangra/hoperxpharma-sub005/storage"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var alternativesCounter prometheus.Counter
var saltMutationsCounter prometheus.Counter

func init() {
	alternativesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alternative_lookups_total",
			Help: "Total number of alternative-medicine lookups served.",
		},
	)
	saltMutationsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "salt_registry_mutations_total",
			Help: "Total number of write operations on the salt registry.",
		},
	)
	prometheus.MustRegister(alternativesCounter, saltMutationsCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to pharmacy database.")

	// Auto-Migration
	logging.Info("Running database auto-migration...")
	db.AutoMigrate(&models.Salt{}, &models.DrugSaltLink{}, &models.Drug{}, &models.InventoryBatch{})

	// Seeding
	seedDefaultSalts(db, logging)

	// Setup Services
	resolver := services.NewAliasResolver(db, logging)
	if err := resolver.Rebuild(); err != nil {
		logging.Fatal("Initial alias index build failed", zap.Error(err))
	}
	registry := services.NewRegistry(db, logging, resolver)
	composition := services.NewComposition(db, logging)
	catalogFetcher := catalog.NewFetcher(db, logging)
	inventoryFetcher := inventory.NewFetcher(db, logging)
	matcher := services.NewMatcher(catalogFetcher, inventoryFetcher, composition, logging)

	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}

	// Setup Router
	router := gin.Default()
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Setup Routes
	setupSaltRoutes(router, registry, resolver, cfg, logging)
	setupCompositionRoutes(router, composition, logging)
	setupAlternativeRoutes(router, matcher, logging)
	setupExportRoutes(router, db, s3Client, cfg, logging)

	// Setup Cron: periodischer Index-Rebuild als Sicherheitsnetz gegen
	// Drift (z.B. manuelle Datenkorrekturen direkt in der DB)
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.IndexRebuildSchedule, func() {
		if err := resolver.Rebuild(); err != nil {
			logging.Error("Scheduled alias index rebuild failed", zap.Error(err))
		} else {
			logging.Info("Scheduled alias index rebuild completed")
		}
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// respondError mappt klassifizierte Fehler auf ihren Statuscode; alles
// andere ist ein interner Fehler.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var appErr *services.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.Status(), gin.H{"error": appErr.Message})
		return
	}
	log.Error("Unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s", name)})
		return 0, false
	}
	return uint(id), true
}

func setupSaltRoutes(router *gin.Engine, registry *services.Registry, resolver *services.AliasResolver, cfg *config.Config, log *zap.Logger) {
	rg := router.Group("/salts")

	// Paginierte Liste mit Filtern
	rg.GET("/", func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		opts := services.ListOptions{
			Page:         page,
			Limit:        limit,
			Category:     c.Query("category"),
			HighRiskOnly: c.Query("highRisk") == "true",
		}
		salts, total, err := registry.ListSalts(opts)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"data": salts,
			"pagination": gin.H{
				"page":  opts.Page,
				"limit": opts.Limit,
				"total": total,
			},
		})
	})

	rg.POST("/", func(c *gin.Context) {
		var input services.CreateSaltInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		salt, err := registry.CreateSalt(input)
		if err != nil {
			respondError(c, log, err)
			return
		}
		saltMutationsCounter.Inc()
		c.JSON(http.StatusCreated, salt)
	})

	// Zweiphasige Suche: Namenstreffer zuerst, dann Aliastreffer ohne
	// Duplikate angehängt
	rg.GET("/search", func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(cfg.SearchLimit)))
		if err != nil || limit < 1 {
			limit = cfg.SearchLimit
		}
		results, err := resolver.Search(query, services.SearchOptions{
			Category:       c.Query("category"),
			HighRiskOnly:   c.Query("highRisk") == "true",
			IncludeAliases: c.DefaultQuery("includeAliases", "true") == "true",
			Limit:          limit,
		})
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": results, "total": len(results)})
	})

	// Exakter Namens- oder Alias-Lookup; kein Treffer ist ein gültiges
	// negatives Ergebnis, kein 404
	rg.GET("/lookup", func(c *gin.Context) {
		name := c.Query("name")
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter name is required"})
			return
		}
		salt, err := resolver.FindByNameOrAlias(name)
		if err != nil {
			respondError(c, log, err)
			return
		}
		if salt == nil {
			c.JSON(http.StatusOK, gin.H{"found": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"found": true, "salt": salt})
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		detail, err := registry.GetSalt(id)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	})

	rg.PUT("/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var input services.UpdateSaltInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		salt, err := registry.UpdateSalt(id, input)
		if err != nil {
			respondError(c, log, err)
			return
		}
		saltMutationsCounter.Inc()
		c.JSON(http.StatusOK, salt)
	})

	rg.DELETE("/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := registry.DeleteSalt(id); err != nil {
			respondError(c, log, err)
			return
		}
		saltMutationsCounter.Inc()
		c.JSON(http.StatusOK, gin.H{"message": "salt deleted"})
	})

	rg.POST("/:id/high-risk", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		salt, err := registry.MarkHighRisk(id)
		if err != nil {
			respondError(c, log, err)
			return
		}
		saltMutationsCounter.Inc()
		c.JSON(http.StatusOK, salt)
	})

	rg.POST("/:id/aliases", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var body struct {
			Alias string `json:"alias" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "alias is required"})
			return
		}
		salt, err := registry.AddAlias(id, body.Alias)
		if err != nil {
			respondError(c, log, err)
			return
		}
		saltMutationsCounter.Inc()
		c.JSON(http.StatusOK, salt)
	})

	rg.DELETE("/:id/aliases", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		alias := c.Query("alias")
		if alias == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter alias is required"})
			return
		}
		salt, err := registry.RemoveAlias(id, alias)
		if err != nil {
			respondError(c, log, err)
			return
		}
		saltMutationsCounter.Inc()
		c.JSON(http.StatusOK, salt)
	})
}

func setupCompositionRoutes(router *gin.Engine, composition *services.Composition, log *zap.Logger) {
	rg := router.Group("/drugs/:drugId/salts")

	rg.GET("", func(c *gin.Context) {
		drugID, ok := parseID(c, "drugId")
		if !ok {
			return
		}
		links, err := composition.GetComposition(drugID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": links})
	})

	rg.POST("", func(c *gin.Context) {
		drugID, ok := parseID(c, "drugId")
		if !ok {
			return
		}
		var input services.LinkInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		link, err := composition.LinkSalt(drugID, input)
		if err != nil {
			respondError(c, log, err)
			return
		}
		saltMutationsCounter.Inc()
		c.JSON(http.StatusCreated, link)
	})

	rg.DELETE("/:saltId", func(c *gin.Context) {
		drugID, ok := parseID(c, "drugId")
		if !ok {
			return
		}
		saltID, ok := parseID(c, "saltId")
		if !ok {
			return
		}
		if err := composition.UnlinkSalt(drugID, saltID); err != nil {
			respondError(c, log, err)
			return
		}
		saltMutationsCounter.Inc()
		c.JSON(http.StatusOK, gin.H{"message": "drug-salt mapping removed"})
	})
}

func setupAlternativeRoutes(router *gin.Engine, matcher *services.Matcher, log *zap.Logger) {
	// Kern-Feature am POS: exakt salzäquivalente Alternativen, gerankt
	router.GET("/alternatives", func(c *gin.Context) {
		drugID, err := strconv.ParseUint(c.Query("drugId"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "drugId is required"})
			return
		}
		storeID, err := strconv.ParseUint(c.Query("storeId"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "storeId is required"})
			return
		}
		minStock, err := strconv.Atoi(c.DefaultQuery("minStock", "1"))
		if err != nil || minStock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "minStock must be a non-negative integer"})
			return
		}

		result, err := matcher.FindAlternatives(uint(drugID), uint(storeID), minStock)
		if err != nil {
			respondError(c, log, err)
			return
		}
		alternativesCounter.Inc()
		c.JSON(http.StatusOK, result)
	})

	router.GET("/substitutes/statistics", func(c *gin.Context) {
		storeID, err := strconv.ParseUint(c.Query("storeId"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "storeId is required"})
			return
		}
		count, err := matcher.Statistics(uint(storeID))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"total_active_drugs": count})
	})
}

func setupExportRoutes(router *gin.Engine, db *gorm.DB, s3Client *s3.Client, cfg *config.Config, log *zap.Logger) {
	// Vollexport des Salzstamms als JSON-Snapshot nach S3, z.B. für die
	// Übernahme in andere Filialsysteme
	router.POST("/salts/export", func(c *gin.Context) {
		var salts []models.Salt
		if err := db.Order("name asc").Find(&salts).Error; err != nil {
			respondError(c, log, err)
			return
		}
		var links []models.DrugSaltLink
		if err := db.Order("drug_id asc, sort_order asc").Find(&links).Error; err != nil {
			respondError(c, log, err)
			return
		}

		payload, err := json.Marshal(gin.H{
			"exported_at":     time.Now().UTC().Format(time.RFC3339),
			"salts":           salts,
			"drug_salt_links": links,
		})
		if err != nil {
			respondError(c, log, err)
			return
		}

		key := fmt.Sprintf("salt-registry-export-%s.json", time.Now().UTC().Format("2006-01-02T15-04-05Z"))
		link, err := storage.UploadFile(s3Client, cfg.ExportS3Bucket, key, payload, cfg)
		if err != nil {
			log.Error("Registry export upload failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "export upload failed"})
			return
		}
		log.Info("Registry exported", zap.String("key", key), zap.Int("salts", len(salts)))
		c.JSON(http.StatusOK, gin.H{"link": link, "salts": len(salts), "links": len(links)})
	})
}

// seedDefaultSalts legt einen Grundstock gängiger Wirkstoffe an, wenn die
// Registry leer ist.
func seedDefaultSalts(db *gorm.DB, logger *zap.Logger) {
	var count int64
	db.Model(&models.Salt{}).Count(&count)
	if count > 0 {
		return
	}
	salts := []models.Salt{
		{Name: "Paracetamol", Aliases: []string{"Acetaminophen", "APAP"}, Category: "Analgesic", TherapeuticClass: "Antipyretic"},
		{Name: "Ibuprofen", Aliases: []string{"Brufen"}, Category: "Analgesic", TherapeuticClass: "NSAID"},
		{Name: "Amoxicillin", Aliases: []string{}, Category: "Antibiotic", TherapeuticClass: "Penicillin", HighRisk: true},
		{Name: "Cetirizine", Aliases: []string{}, Category: "Antihistamine", TherapeuticClass: "Anti-allergic"},
		{Name: "Omeprazole", Aliases: []string{}, Category: "Gastrointestinal", TherapeuticClass: "PPI"},
	}
	if err := db.Create(&salts).Error; err != nil {
		logger.Warn("Failed to seed default salts", zap.Error(err))
	} else {
		logger.Info("Default salts seeded.")
	}
}
