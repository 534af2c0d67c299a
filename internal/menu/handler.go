package menu

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"menucms/internal/docstore"
	"menucms/internal/images"
	"menucms/internal/storage"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func respondError(c *gin.Context, err error) {
	var partial *PartialUploadError
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, images.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrTooManyImages),
		errors.Is(err, ErrUnknownImage),
		errors.Is(err, images.ErrEmptyFile),
		errors.As(err, &partial):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// formImage reads the single uploaded file under "file".
func formImage(c *gin.Context) ([]byte, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return nil, false
	}
	if err := images.CheckSize(header.Size); err != nil {
		respondError(c, err)
		return nil, false
	}
	data, err := storage.ReadFormFile(header)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return data, true
}

// --------------------------------------------------
// Restaurants
// --------------------------------------------------

func (h *Handler) ListRestaurants(c *gin.Context) {
	list, err := h.service.ListRestaurants(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	if ids, scoped := c.Get("restaurantScope"); scoped {
		allowed := map[string]bool{}
		for _, id := range ids.([]string) {
			allowed[id] = true
		}
		visible := make([]Restaurant, 0, len(list))
		for _, r := range list {
			if allowed[r.ID] {
				visible = append(visible, r)
			}
		}
		list = visible
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req RestaurantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.service.CreateRestaurant(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetRestaurant(c *gin.Context) {
	res, err := h.service.GetRestaurant(c.Request.Context(), c.Param("rid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateRestaurant(c *gin.Context) {
	var req RestaurantPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.service.UpdateRestaurant(c.Request.Context(), c.Param("rid"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteRestaurant(c *gin.Context) {
	report, err := h.service.DeleteRestaurant(c.Request.Context(), c.Param("rid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) UploadLogo(c *gin.Context) {
	data, ok := formImage(c)
	if !ok {
		return
	}
	res, err := h.service.SetRestaurantLogo(c.Request.Context(), c.Param("rid"), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UploadBackground(c *gin.Context) {
	data, ok := formImage(c)
	if !ok {
		return
	}
	res, err := h.service.SetRestaurantBackground(c.Request.Context(), c.Param("rid"), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Export(c *gin.Context) {
	rid := c.Param("rid")
	data, err := h.service.ExportXLSX(c.Request.Context(), rid)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="menu-%s.xlsx"`, rid))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// --------------------------------------------------
// Categories
// --------------------------------------------------

func (h *Handler) ListCategories(c *gin.Context) {
	list, err := h.service.ListCategories(c.Request.Context(), c.Param("rid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cat, err := h.service.CreateCategory(c.Request.Context(), c.Param("rid"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	var req CategoryPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cat, err := h.service.UpdateCategory(c.Request.Context(), c.Param("rid"), c.Param("cid"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *Handler) ReorderCategories(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids is required"})
		return
	}

	if err := h.service.ReorderCategories(c.Request.Context(), c.Param("rid"), req.IDs); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	report, err := h.service.DeleteCategory(c.Request.Context(), c.Param("rid"), c.Param("cid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) UploadCategoryIcon(c *gin.Context) {
	data, ok := formImage(c)
	if !ok {
		return
	}
	cat, err := h.service.SetCategoryIcon(c.Request.Context(), c.Param("rid"), c.Param("cid"), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// --------------------------------------------------
// Dishes
// --------------------------------------------------

func (h *Handler) ListDishes(c *gin.Context) {
	list, err := h.service.ListDishes(c.Request.Context(), c.Param("rid"), c.Param("cid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetDish(c *gin.Context) {
	dish, err := h.service.GetDish(c.Request.Context(), c.Param("rid"), c.Param("cid"), c.Param("did"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dish)
}

func (h *Handler) CreateDish(c *gin.Context) {
	var req DishInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	dish, err := h.service.CreateDish(c.Request.Context(), c.Param("rid"), c.Param("cid"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dish)
}

func (h *Handler) UpdateDish(c *gin.Context) {
	var req DishPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	dish, err := h.service.UpdateDish(c.Request.Context(), c.Param("rid"), c.Param("cid"), c.Param("did"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dish)
}

func (h *Handler) DeleteDish(c *gin.Context) {
	report, err := h.service.DeleteDish(c.Request.Context(), c.Param("rid"), c.Param("cid"), c.Param("did"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// UploadDishImages accepts up to six files under "files". A partial failure
// still returns the saved dish along with a warning.
func (h *Handler) UploadDishImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "files are required"})
		return
	}

	headers := form.File["files"]
	files := make([][]byte, 0, len(headers))
	for _, fh := range headers {
		if err := images.CheckSize(fh.Size); err != nil {
			respondError(c, fmt.Errorf("%s: %w", fh.Filename, err))
			return
		}
		data, err := storage.ReadFormFile(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		files = append(files, data)
	}

	dish, err := h.service.AddDishImages(
		c.Request.Context(),
		c.Param("rid"), c.Param("cid"), c.Param("did"),
		files, nil,
	)
	var partial *PartialUploadError
	if errors.As(err, &partial) && dish != nil {
		c.JSON(http.StatusOK, gin.H{"dish": dish, "warning": partial.Error()})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dish": dish})
}

// --------------------------------------------------
// Public
// --------------------------------------------------

func (h *Handler) PublicMenu(c *gin.Context) {
	m, err := h.service.PublicMenu(c.Request.Context(), c.Param("rid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(time.Minute.Seconds())))
	c.JSON(http.StatusOK, m)
}
