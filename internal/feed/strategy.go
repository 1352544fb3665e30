package feed

import (
	"github.com/couchcryptid/quake-feed-service/internal/domain"
)

// ListStrategy decodes every feature of a list feed and presents each one.
// One malformed feature fails the whole attempt.
type ListStrategy struct{}

func (ListStrategy) Name() string { return "list" }

func (ListStrategy) Build(body []byte) ([]domain.EventViewModel, error) {
	events, err := domain.DecodeEvents(body)
	if err != nil {
		return nil, err
	}
	return domain.PresentAll(events), nil
}

// HeadlineStrategy presents only the first feature of a headline feed. An
// empty feed delivers a nil view model rather than failing.
type HeadlineStrategy struct{}

func (HeadlineStrategy) Name() string { return "headline" }

func (HeadlineStrategy) Build(body []byte) (*domain.HeadlineViewModel, error) {
	h, err := domain.DecodeHeadline(body)
	if err != nil || h == nil {
		return nil, err
	}
	vm := domain.PresentHeadline(*h)
	return &vm, nil
}
