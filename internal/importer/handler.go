package importer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"menucms/internal/auth"
	"menucms/internal/docstore"
	"menucms/internal/menu"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// MaxFileSize bounds an uploaded menu document.
const MaxFileSize = 5 << 20

type UserLookup interface {
	GetUser(ctx context.Context, id string) (*auth.User, error)
}

type RestaurantLookup interface {
	GetRestaurant(ctx context.Context, restaurantID string) (*menu.Restaurant, error)
}

type Handler struct {
	writer      *Writer
	users       UserLookup
	restaurants RestaurantLookup
	upgrader    websocket.Upgrader
	log         logrus.FieldLogger
}

func NewHandler(writer *Writer, users UserLookup, restaurants RestaurantLookup, origins []string, log logrus.FieldLogger) *Handler {
	return &Handler{
		writer:      writer,
		users:       users,
		restaurants: restaurants,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(origins),
		},
		log: log,
	}
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := map[string]bool{}
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

// readMenu takes the menu either from a multipart "file" field or from the
// raw request body.
func readMenu(c *gin.Context) ([]byte, error) {
	if header, err := c.FormFile("file"); err == nil {
		if err := ValidateFileExtension(header.Filename); err != nil {
			return nil, err
		}
		if header.Size > MaxFileSize {
			return nil, errors.New("menu file must be 5 MB or smaller")
		}
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, MaxFileSize)
	return io.ReadAll(body)
}

// canImport allows managers everywhere and anyone into a restaurant id that
// does not exist yet. Existing restaurants need a grant.
func (h *Handler) canImport(ctx context.Context, userID, restaurantID string) (bool, error) {
	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.CanAccess(restaurantID) {
		return true, nil
	}
	_, err = h.restaurants.GetRestaurant(ctx, restaurantID)
	if errors.Is(err, docstore.ErrNotFound) {
		return true, nil
	}
	return false, err
}

type previewResponse struct {
	RestaurantID  string    `json:"restaurantId"`
	Name          string    `json:"name"`
	CategoryCount int       `json:"categoryCount"`
	DishCount     int       `json:"dishCount"`
	Warnings      []Warning `json:"warnings"`
}

// Preview parses and validates without writing anything.
func (h *Handler) Preview(c *gin.Context) {
	data, err := readMenu(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := Parse(data)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, previewResponse{
		RestaurantID:  m.ID,
		Name:          m.NameEn,
		CategoryCount: len(m.Categories),
		DishCount:     m.DishCount(),
		Warnings:      Validate(m),
	})
}

// Commit runs a full import in the request.
func (h *Handler) Commit(c *gin.Context) {
	data, err := readMenu(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := Parse(data)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	warnings := Validate(m)

	userID := c.GetString("userID")
	ok, err := h.canImport(c.Request.Context(), userID, m.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "no access to this restaurant"})
		return
	}

	result, err := h.writer.Import(c.Request.Context(), m, userID, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    err.Error(),
			"result":   result,
			"warnings": warnings,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":   result,
		"warnings": warnings,
	})
}

// --------------------------------------------------
// Live import over websocket
// --------------------------------------------------

const (
	msgStart     = "start"
	msgCancel    = "cancel"
	msgWarnings  = "warnings"
	msgProgress  = "progress"
	msgDone      = "done"
	msgCancelled = "cancelled"
	msgError     = "error"
)

type clientMessage struct {
	Type string          `json:"type"`
	Menu json.RawMessage `json:"menu,omitempty"`
}

type streamMessage struct {
	Type      string    `json:"type"`
	Completed int       `json:"completed,omitempty"`
	Total     int       `json:"total,omitempty"`
	Message   string    `json:"message,omitempty"`
	Warnings  []Warning `json:"warnings,omitempty"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Stream upgrades to a websocket. The client sends {"type":"start","menu":...}
// and receives warnings, progress and a final done, cancelled or error
// message. Sending {"type":"cancel"} or closing the socket stops the import
// before the next batch.
func (h *Handler) Stream(c *gin.Context) {
	userID := c.GetString("userID")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(MaxFileSize)

	send := func(m streamMessage) {
		if err := conn.WriteJSON(m); err != nil {
			h.log.WithError(err).Debug("ws write failed")
		}
	}

	var start clientMessage
	if err := conn.ReadJSON(&start); err != nil || start.Type != msgStart {
		send(streamMessage{Type: msgError, Error: `expected {"type":"start","menu":...}`})
		return
	}

	m, err := Parse(start.Menu)
	if err != nil {
		send(streamMessage{Type: msgError, Error: err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	ok, err := h.canImport(ctx, userID, m.ID)
	if err != nil || !ok {
		send(streamMessage{Type: msgError, Error: "no access to this restaurant"})
		return
	}

	send(streamMessage{Type: msgWarnings, Warnings: Validate(m)})

	go func() {
		defer cancel()
		for {
			var msg clientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == msgCancel {
				h.log.WithField("restaurant_id", m.ID).Info("import cancel requested")
				return
			}
		}
	}()

	result, err := h.writer.Import(ctx, m, userID, func(completed, total int, message string) {
		send(streamMessage{Type: msgProgress, Completed: completed, Total: total, Message: message})
	})

	switch {
	case err == nil:
		send(streamMessage{Type: msgDone, Result: &result})
	case errors.Is(err, context.Canceled):
		send(streamMessage{Type: msgCancelled, Result: &result})
	default:
		send(streamMessage{Type: msgError, Error: err.Error(), Result: &result})
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
