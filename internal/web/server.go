package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"legalrag/internal/domain"
	"legalrag/internal/summarizer"
)

//go:embed templates/index.html
var templatesFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

// Port is the web-facing subset of the RAG service.
type Port interface {
	Ask(ctx context.Context, question string) (*domain.Answer, error)
	IngestDocument(ctx context.Context, path string) (domain.IngestReport, error)
	IndexSize(ctx context.Context) (int, error)
}

type Options struct {
	Summary      string
	DocumentPath string
	Persistent   bool
	// StartupError is shown on the start page until the index is rebuilt.
	StartupError string
}

type Server struct {
	app  *fiber.App
	svc  Port
	opts Options
	log  *zap.Logger

	mu         sync.RWMutex
	summary    string
	startupErr string
}

// New builds the fiber app with all routes registered.
func New(svc Port, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{svc: svc, opts: opts, log: log, summary: opts.Summary, startupErr: opts.StartupError}
	app := fiber.New(fiber.Config{
		AppName:               "legalrag",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(s.requestLogger)
	s.RegisterRoutes(app)
	s.app = app
	return s
}

func (s *Server) RegisterRoutes(r fiber.Router) {
	r.Get("/", s.index)
	r.Post("/ask", s.ask)
	r.Post("/index", s.buildIndex)
	r.Get("/health", s.health)
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.log.Info("web ui listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error { return s.app.Shutdown() }

type page struct {
	Summary    string
	Status     string
	Error      string
	Question   string
	Persistent bool
	Answer     *answerView
}

type answerView struct {
	Text    string
	Sources []sourceView
}

type sourceView struct {
	Page   int
	Before string
	Best   string
	After  string
}

func (s *Server) index(c *fiber.Ctx) error {
	s.mu.RLock()
	p := page{Error: s.startupErr}
	s.mu.RUnlock()
	return s.render(c, fiber.StatusOK, p)
}

func (s *Server) ask(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.FormValue("question"))
	a, err := s.svc.Ask(c.UserContext(), q)
	if err != nil {
		return s.render(c, statusFor(err), page{Question: q, Error: domain.UserMessage(err)})
	}
	return s.render(c, fiber.StatusOK, page{Question: q, Answer: newAnswerView(a)})
}

func (s *Server) buildIndex(c *fiber.Ctx) error {
	if !s.opts.Persistent {
		return s.render(c, fiber.StatusConflict, page{Status: "Die Wissensdatenbank wird beim Start automatisch aufgebaut."})
	}
	report, err := s.svc.IngestDocument(c.UserContext(), s.opts.DocumentPath)
	if err != nil {
		return s.render(c, statusFor(err), page{Error: domain.UserMessage(err)})
	}
	s.mu.Lock()
	s.summary = report.Summary
	s.startupErr = ""
	s.mu.Unlock()
	return s.render(c, fiber.StatusOK, page{
		Status: fmt.Sprintf("Wissensdatenbank aufgebaut: %d Abschnitte, %d im Index", report.Chunks, report.Stored),
	})
}

func (s *Server) health(c *fiber.Ctx) error {
	n, err := s.svc.IndexSize(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok", "index_size": n})
}

func (s *Server) render(c *fiber.Ctx, status int, p page) error {
	s.mu.RLock()
	p.Summary = s.summary
	s.mu.RUnlock()
	p.Persistent = s.opts.Persistent
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	c.Status(status)
	return pageTmpl.Execute(c, p)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Info("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("took", time.Since(start)),
	)
	return err
}

func statusFor(err error) int {
	var ext *domain.ExternalServiceError
	var load *domain.DocumentLoadError
	switch {
	case errors.Is(err, domain.ErrEmptyQuestion):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrIndexNotFound):
		return fiber.StatusConflict
	case errors.As(err, &ext):
		return fiber.StatusBadGateway
	case errors.As(err, &load):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func newAnswerView(a *domain.Answer) *answerView {
	v := &answerView{Text: a.Text}
	for _, r := range a.Sources {
		v.Sources = append(v.Sources, newSourceView(r.Chunk, a.Question))
	}
	return v
}

// newSourceView splits the chunk around its best-matching sentence for highlighting.
func newSourceView(ch domain.Chunk, question string) sourceView {
	sv := sourceView{Page: ch.Page}
	sentences, best := summarizer.BestSentence(ch.Text, question)
	if best < 0 {
		sv.Before = strings.Join(sentences, " ")
		if sv.Before == "" {
			sv.Before = strings.TrimSpace(ch.Text)
		}
		return sv
	}
	if best > 0 {
		sv.Before = strings.Join(sentences[:best], " ") + " "
	}
	sv.Best = sentences[best]
	if best < len(sentences)-1 {
		sv.After = " " + strings.Join(sentences[best+1:], " ")
	}
	return sv
}
