package menu

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupMenuTestRouter(t *testing.T) (*gin.Engine, *testEnv) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := newTestEnv(t)
	h := NewHandler(env.svc)

	r := gin.New()
	r.POST("/restaurants", h.CreateRestaurant)
	r.GET("/restaurants/:rid", h.GetRestaurant)
	r.DELETE("/restaurants/:rid", h.DeleteRestaurant)
	r.POST("/restaurants/:rid/categories", h.CreateCategory)
	r.POST("/restaurants/:rid/categories/:cid/dishes", h.CreateDish)
	r.PATCH("/restaurants/:rid/categories/:cid/dishes/:did", h.UpdateDish)
	r.POST("/restaurants/:rid/categories/:cid/dishes/:did/images", h.UploadDishImages)
	r.GET("/menu/:rid", h.PublicMenu)
	return r, env
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_RestaurantLifecycle(t *testing.T) {
	r, _ := setupMenuTestRouter(t)

	w := doJSON(r, "POST", "/restaurants", gin.H{"name": "Cafe"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var res Restaurant
	json.Unmarshal(w.Body.Bytes(), &res)

	w = doJSON(r, "GET", "/restaurants/"+res.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doJSON(r, "DELETE", "/restaurants/"+res.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doJSON(r, "GET", "/restaurants/"+res.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestHandler_InvalidInputIs400(t *testing.T) {
	r, _ := setupMenuTestRouter(t)

	w := doJSON(r, "POST", "/restaurants", gin.H{"name": "Cafe", "layout": "table"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandler_PatchDishMergesFields(t *testing.T) {
	r, _ := setupMenuTestRouter(t)

	w := doJSON(r, "POST", "/restaurants", gin.H{"name": "Cafe"})
	var res Restaurant
	json.Unmarshal(w.Body.Bytes(), &res)
	w = doJSON(r, "POST", "/restaurants/"+res.ID+"/categories", gin.H{"name": "Drinks"})
	var cat Category
	json.Unmarshal(w.Body.Bytes(), &cat)
	w = doJSON(r, "POST", "/restaurants/"+res.ID+"/categories/"+cat.ID+"/dishes", gin.H{
		"name":      "Latte",
		"nameAr":    "لاتيه",
		"price":     2,
		"options":   gin.H{"header": "Size", "items": []gin.H{{"name": "Large", "price": 0.5}}},
		"allergens": []gin.H{{"name": "Milk"}},
	})
	var dish Dish
	json.Unmarshal(w.Body.Bytes(), &dish)

	w = doJSON(r, "PATCH", "/restaurants/"+res.ID+"/categories/"+cat.ID+"/dishes/"+dish.ID, gin.H{"price": 2.5})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated Dish
	json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Price != 2.5 || updated.NameAr != "لاتيه" || updated.Options == nil || len(updated.Allergens) != 1 {
		t.Fatalf("patch dropped fields: %+v", updated)
	}
}

func TestHandler_UploadDishImages(t *testing.T) {
	r, env := setupMenuTestRouter(t)

	w := doJSON(r, "POST", "/restaurants", gin.H{"name": "Cafe"})
	var res Restaurant
	json.Unmarshal(w.Body.Bytes(), &res)
	w = doJSON(r, "POST", "/restaurants/"+res.ID+"/categories", gin.H{"name": "Drinks"})
	var cat Category
	json.Unmarshal(w.Body.Bytes(), &cat)
	w = doJSON(r, "POST", "/restaurants/"+res.ID+"/categories/"+cat.ID+"/dishes", gin.H{"name": "Latte", "price": 2})
	var dish Dish
	json.Unmarshal(w.Body.Bytes(), &dish)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for i := 0; i < 2; i++ {
		part, _ := mw.CreateFormFile("files", "photo.png")
		part.Write(pngBytes(t))
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/restaurants/"+res.ID+"/categories/"+cat.ID+"/dishes/"+dish.ID+"/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.blobs.Len() != 2 {
		t.Fatalf("expected 2 stored images, got %d", env.blobs.Len())
	}

	w = doJSON(r, "GET", "/menu/"+res.ID, nil)
	var m PublicMenu
	json.Unmarshal(w.Body.Bytes(), &m)
	if len(m.Categories) != 1 || len(m.Categories[0].Dishes[0].ImageURLs) != 2 {
		t.Fatalf("public menu missing images: %s", w.Body.String())
	}
}
