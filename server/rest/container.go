package rest

import (
	"github.com/go-chi/chi/v5"
)

func ApplyRouter(args *ContainerArgs) func(chi.Router) {
	h := ProvideHandler(ProvideService(args))

	return func(r chi.Router) {
		r.Post("/download", h.Download())
		r.Post("/queue", h.Queue())
		r.Post("/compress", h.Compress())
		r.Post("/cancel", h.Cancel())
		r.Get("/free", h.Free())
	}
}
