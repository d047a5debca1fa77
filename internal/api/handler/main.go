package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do"

	"annotate/internal/services"
)

type Config struct {
	Container *do.Injector
	Mode      string
	Origins   []string
	// Registry receives the http metrics; a fresh one is created when nil.
	Registry *prometheus.Registry
}

type appValidator struct {
	validate *validator.Validate
}

func (v appValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func New(cfg *Config) (http.Handler, error) {
	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == "debug" {
		r.Debug = true
		pprof.Register(r)
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Validator = &appValidator{validate: validator.New()}
	r.Use(middleware.RequestID())
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${id}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())
	r.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "annotate",
		Registerer: registry,
	}))

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: registry}))

	routesAPI := r.Group("/api")
	{
		authentication, err := do.Invoke[*services.Authentication](cfg.Container)
		if err != nil {
			return nil, err
		}
		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.Origins,
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			AllowCredentials: true,
			MaxAge:           60 * 60,
		})

		routesAPI.Use(cors)
		routesAPI.Use(Authn(authentication)) // Authn will NOT terminate unauthenticated request.

		u := groupUser{cfg.Container}
		routesAPI.GET("/me", u.Me)

		routesAPITranscript := routesAPI.Group("/transcripts")
		{
			t := groupTranscript{cfg.Container}
			routesAPITranscript.GET("", t.List)
			routesAPITranscript.GET("/:id", t.Show)
			routesAPITranscript.PATCH("/:id/annotation", t.SetAnnotationCompleted)
			routesAPITranscript.GET("/:id/video", t.VideoURL)

			a := groupAnnotation{cfg.Container}
			routesAPITranscript.GET("/:id/notes", a.ListNotes)
			routesAPITranscript.POST("/:id/notes", a.CreateNote)
			routesAPITranscript.PATCH("/:id/notes/:noteId", a.UpdateNote)
			routesAPITranscript.DELETE("/:id/notes/:noteId", a.DeleteNote)
			routesAPITranscript.PUT("/:id/flags/:lineId", a.SetFlag)

			s := groupScavenger{cfg.Container}
			routesAPITranscript.GET("/:id/scavenger-hunt", s.Show)
			routesAPITranscript.PATCH("/:id/scavenger-hunt", s.SetCompleted)
			routesAPITranscript.POST("/:id/scavenger-hunt/answers", s.SaveAnswer)
		}

		// query string variants take ?transcriptId=
		s := groupScavenger{cfg.Container}
		routesAPI.GET("/scavenger-hunt", s.Show)
		routesAPI.PATCH("/scavenger-hunt", s.SetCompleted)
		routesAPI.POST("/scavenger-hunt/answers", s.SaveAnswer)

		routesAPIAdmin := routesAPI.Group("/admin")
		{
			a := groupAdmin{cfg.Container}
			routesAPIAdmin.POST("/transcripts", a.ImportTranscript)
			routesAPIAdmin.DELETE("/transcripts/:id", a.DeleteTranscript)
			routesAPIAdmin.POST("/transcripts/:id/video", a.UploadVideo)
			routesAPIAdmin.DELETE("/transcripts/:id/video", a.DeleteVideo)
			routesAPIAdmin.POST("/transcripts/:id/assignments", a.Assign)
			routesAPIAdmin.PATCH("/assignments/:id", a.UpdateAssignment)
			routesAPIAdmin.DELETE("/assignments/:id", a.DeleteAssignment)
			routesAPIAdmin.GET("/scavenger-submissions", a.ListSubmissions)
			routesAPIAdmin.GET("/scavenger-submissions/export", a.Export)
			routesAPIAdmin.GET("/scavenger-submissions/:id/export", a.Export)
		}
	}

	return r, nil
}
