package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"tutorial_finder/internal/domain"
)

type ImagePreparer interface {
	Prepare(ctx context.Context, imageURL string) domain.PortableImage
}

type Describer interface {
	// Ready reports whether Describe can be called at all, without touching
	// the network.
	Ready() error
	Describe(ctx context.Context, image domain.PortableImage, instruction string) (string, error)
}

type VideoSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error)
}

type Publisher interface {
	Publish(ctx context.Context, report *domain.Report) error
	Close() error
}
