package router

import (
	"net/http"
	"time"

	"github.com/examly/examly-backend/internal/config"
	"github.com/examly/examly-backend/internal/handler"
	"github.com/examly/examly-backend/internal/middleware"
	"github.com/examly/examly-backend/internal/response"
	"github.com/examly/examly-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Student  *handler.StudentHandler
	Course   *handler.CourseHandler
	Question *handler.QuestionHandler
	Exam     *handler.ExamHandler
	Result   *handler.ResultHandler
	AICheck  *handler.AICheckHandler
	Monitor  *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "X-Device-Type"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/instructor/login", handlers.Auth.InstructorLogin)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.POST("/exams/:exam_id/join", handlers.Student.JoinExam)
		studentAPI.GET("/exams/:exam_id/attempt", handlers.Student.GetAttempt)
		studentAPI.PUT("/exams/:exam_id/answers/:index", handlers.Student.RecordAnswer)
		studentAPI.POST("/exams/:exam_id/submit", handlers.Student.SubmitAttempt)
		studentAPI.POST("/exams/:exam_id/feedback", handlers.Student.SubmitFeedback)
	}

	// ─── 3. WebSocket Group (Instructor WS Auth) ───────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireInstructorWSAuth(authService))
	{
		ws.GET("/instructor/exams/:exam_id/monitor", handlers.Monitor.MonitorExam)
	}

	// ─── 4. Instructor Group (JWT) ─────────────────────────────────────
	instructorAPI := router.Group("/api/v1/instructor")
	instructorAPI.Use(middleware.RequireInstructorJWT(authService))
	{
		// Courses
		instructorAPI.GET("/courses", handlers.Course.List)
		instructorAPI.POST("/courses", handlers.Course.Create)
		instructorAPI.GET("/courses/:course_id", handlers.Course.Get)
		instructorAPI.DELETE("/courses/:course_id", handlers.Course.Delete)

		// Question pool
		instructorAPI.GET("/courses/:course_id/questions", handlers.Question.List)
		instructorAPI.POST("/courses/:course_id/questions", handlers.Question.BulkUpload)
		instructorAPI.GET("/courses/:course_id/questions/export", handlers.Question.ExportCSV)
		instructorAPI.GET("/courses/:course_id/chapters", handlers.Question.Chapters)
		instructorAPI.PATCH("/questions/:question_id", handlers.Question.Update)
		instructorAPI.POST("/questions/:question_id/sanitize", handlers.Question.MarkSanitized)
		instructorAPI.DELETE("/questions/:question_id", handlers.Question.Delete)

		// Exam templates
		instructorAPI.POST("/exams", handlers.Exam.Create)
		instructorAPI.GET("/exams/:exam_id", handlers.Exam.Get)
		instructorAPI.GET("/courses/:course_id/exams", handlers.Exam.ListByCourse)
		instructorAPI.PATCH("/exams/:exam_id/active", handlers.Exam.SetActive)

		// Results & attempt administration
		instructorAPI.GET("/exams/:exam_id/attempts", handlers.Result.List)
		instructorAPI.GET("/exams/:exam_id/attempts/export", handlers.Result.ExportCSV)
		instructorAPI.GET("/exams/:exam_id/attempts/:student_id", handlers.Result.Detail)
		instructorAPI.DELETE("/exams/:exam_id/attempts/:student_id", handlers.Result.Delete)
		instructorAPI.POST("/exams/:exam_id/close", handlers.Result.Close)
		instructorAPI.DELETE("/sessions/:student_id", handlers.Auth.ResetStudentSession)

		// Answer cross-check
		instructorAPI.POST("/ai/check-answers", handlers.AICheck.CheckAnswers)
	}

	return router
}
