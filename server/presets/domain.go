package presets

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Preset is a named bundle of download options the frontend can recall
// instead of filling the form every time.
type Preset struct {
	Id         string    `json:"id"`
	Name       string    `json:"name"`
	Format     string    `json:"format"`
	Quality    int       `json:"quality"`
	Resolution string    `json:"resolution"`
	TargetDir  string    `json:"target_dir"`
	CreatedAt  time.Time `json:"created_at"`
}

type Repository interface {
	List(ctx context.Context) ([]Preset, error)
	Get(ctx context.Context, id string) (*Preset, error)
	Submit(ctx context.Context, p *Preset) (*Preset, error)
	Delete(ctx context.Context, id string) error
}

type RestHandler interface {
	List() http.HandlerFunc
	Get() http.HandlerFunc
	Submit() http.HandlerFunc
	Delete() http.HandlerFunc
	ApplyRouter() func(chi.Router)
}
