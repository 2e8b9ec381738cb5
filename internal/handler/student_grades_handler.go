package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ai-project-hub/internal/dto"
	"github.com/noah-isme/ai-project-hub/internal/middleware"
	"github.com/noah-isme/ai-project-hub/internal/service"
	"github.com/noah-isme/ai-project-hub/internal/utils"
)

// GradeStreamReady is the first message written to a grade stream.
const GradeStreamReady = "stream.ready"

const gradeStreamPingInterval = 30 * time.Second

// StudentGradesHandler lists the published grades of the calling student and
// streams newly published ones over a websocket.
type StudentGradesHandler struct {
	service service.GradebookService
	logger  zerolog.Logger
}

// NewStudentGradesHandler constructs the handler.
func NewStudentGradesHandler(service service.GradebookService, logger zerolog.Logger) *StudentGradesHandler {
	return &StudentGradesHandler{
		service: service,
		logger:  logger.With().Str("component", "student_grades_handler").Logger(),
	}
}

// Register attaches the student routes.
func (h *StudentGradesHandler) Register(router fiber.Router) {
	router.Get("/grades", middleware.WithAuth(h.list, middleware.AuthOptions{RequireUser: true}))

	router.Use("/grades/ws", func(c *fiber.Ctx) error {
		if userIDFromContext(c) == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return utils.SendError(c, fiber.StatusUpgradeRequired, "websocket upgrade required")
		}
		return c.Next()
	})
	router.Get("/grades/ws", websocket.New(h.stream))
}

func (h *StudentGradesHandler) list(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	response, err := h.service.ListForStudent(requestContext(c), studentID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "grades retrieved", response)
}

func (h *StudentGradesHandler) stream(conn *websocket.Conn) {
	studentID := userIDFromLocal(conn.Locals("user_id"))
	if studentID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	events, cleanup := h.service.Subscribe(studentID)
	defer cleanup()

	log := h.logger.With().Uint("student_id", studentID).Logger()
	log.Debug().Msg("grade stream connected")
	defer log.Debug().Msg("grade stream disconnected")

	if err := conn.WriteJSON(dto.GradeEventResponse{Type: GradeStreamReady}); err != nil {
		return
	}

	// The client never sends data; reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(gradeStreamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				log.Warn().Err(err).Msg("grade stream write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
