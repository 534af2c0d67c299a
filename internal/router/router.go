package router

import (
	"net/http"
	"time"

	"menucms/internal/auth"
	"menucms/internal/importer"
	"menucms/internal/menu"
	"menucms/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Tokens   *auth.Tokens
	Users    middleware.UserLookup
	Auth     *auth.Handler
	Menu     *menu.Handler
	Importer *importer.Handler
	Origins  []string
	Log      logrus.FieldLogger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Log))

	r.Use(cors.New(corsConfig(d.Origins)))

	// Health check route
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := middleware.AuthMiddleware(d.Tokens, d.Log)
	manager := middleware.RequireRole(d.Users, auth.RoleManager)
	access := middleware.RestaurantAccess(d.Users)

	// ───────────────────────── AUTH ─────────────────────────
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", d.Auth.Register)
		authGroup.POST("/login", d.Auth.Login)
	}

	me := r.Group("/me")
	me.Use(authed)
	{
		me.GET("", d.Auth.Me)
		me.POST("/background", d.Auth.UploadBackground)
	}

	// ───────────────────────── USERS ─────────────────────────
	users := r.Group("/users")
	users.Use(authed, manager)
	{
		users.GET("", d.Auth.ListUsers)
		users.POST("", d.Auth.CreateUser)
		users.PATCH("/:id", d.Auth.UpdateUser)
		users.DELETE("/:id", d.Auth.DeleteUser)
	}

	// ───────────────────────── RESTAURANTS ─────────────────────────
	restaurants := r.Group("/restaurants")
	restaurants.Use(authed, access)
	{
		restaurants.GET("", d.Menu.ListRestaurants)
		restaurants.POST("", manager, d.Menu.CreateRestaurant)
		restaurants.GET("/:rid", d.Menu.GetRestaurant)
		restaurants.PATCH("/:rid", d.Menu.UpdateRestaurant)
		restaurants.DELETE("/:rid", manager, d.Menu.DeleteRestaurant)
		restaurants.POST("/:rid/logo", d.Menu.UploadLogo)
		restaurants.POST("/:rid/background", d.Menu.UploadBackground)
		restaurants.GET("/:rid/export", d.Menu.Export)

		restaurants.GET("/:rid/categories", d.Menu.ListCategories)
		restaurants.POST("/:rid/categories", d.Menu.CreateCategory)
		restaurants.PUT("/:rid/categories/order", d.Menu.ReorderCategories)
		restaurants.PATCH("/:rid/categories/:cid", d.Menu.UpdateCategory)
		restaurants.DELETE("/:rid/categories/:cid", d.Menu.DeleteCategory)
		restaurants.POST("/:rid/categories/:cid/icon", d.Menu.UploadCategoryIcon)

		restaurants.GET("/:rid/categories/:cid/dishes", d.Menu.ListDishes)
		restaurants.POST("/:rid/categories/:cid/dishes", d.Menu.CreateDish)
		restaurants.GET("/:rid/categories/:cid/dishes/:did", d.Menu.GetDish)
		restaurants.PATCH("/:rid/categories/:cid/dishes/:did", d.Menu.UpdateDish)
		restaurants.DELETE("/:rid/categories/:cid/dishes/:did", d.Menu.DeleteDish)
		restaurants.POST("/:rid/categories/:cid/dishes/:did/images", d.Menu.UploadDishImages)
	}

	// ───────────────────────── IMPORT ─────────────────────────
	imports := r.Group("/import")
	imports.Use(authed)
	{
		imports.POST("/preview", d.Importer.Preview)
		imports.POST("", d.Importer.Commit)
		imports.GET("/stream", d.Importer.Stream)
	}

	// ───────────────────────── PUBLIC ─────────────────────────
	r.GET("/menu/:rid", d.Menu.PublicMenu)

	return r
}

func corsConfig(origins []string) cors.Config {
	conf := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			conf.AllowAllOrigins = true
			conf.AllowCredentials = false
			return conf
		}
	}
	if len(origins) == 0 {
		conf.AllowAllOrigins = true
		conf.AllowCredentials = false
		return conf
	}
	conf.AllowOrigins = origins
	return conf
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request")
	}
}
