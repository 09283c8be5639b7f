package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// after RequestID so every line carries req_id
	r.Use(RequestLogger(h.log))
	r.Use(maxBody(1 << 20))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Post("/process-video", h.ProcessVideo)
	r.Post("/process-thumbnail", h.ProcessThumbnail)
	r.Post("/jobs/{kind}", h.EnqueueEvent)

	r.Route("/videos", func(r chi.Router) {
		r.Get("/", h.ListVideos)
		r.Get("/{id}", h.GetVideo)
		r.Put("/{id}/metadata", h.SaveMetadata)
		r.Put("/{id}/thumbnail", h.LinkThumbnail)
	})
	r.Get("/thumbnails/{id}", h.GetThumbnail)
	r.Post("/uploads/url", h.IssueUploadURL)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}
